package meta

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

var (
	crlfBytes         = []byte(CRLF)
	errorGenericBytes = []byte(ErrorGeneric)
	clientErrorPrefix = []byte(ErrorClientPrefix + " ")
	serverErrorPrefix = []byte(ErrorServerPrefix + " ")
)

// maxDataBlock bounds the allocation for a VA data block.
const maxDataBlock = 1 << 30

// ReadResponse reads and parses a single response from r.
//
//	<status> [<size>] <flags>*\r\n[<data>\r\n]
//
// ERROR, CLIENT_ERROR and SERVER_ERROR lines are returned in Response.Error,
// not as a Go error. A Go error means an I/O failure or a malformed response;
// the connection must be discarded in both cases.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		line, err = r.ReadBytes('\n')
	}
	if err != nil {
		return nil, err
	}

	line = bytes.TrimSuffix(line, crlfBytes)

	switch {
	case bytes.HasPrefix(line, clientErrorPrefix):
		return &Response{Error: &ClientError{Message: string(line[len(clientErrorPrefix):])}}, nil
	case bytes.HasPrefix(line, serverErrorPrefix):
		return &Response{Error: &ServerError{Message: string(line[len(serverErrorPrefix):])}}, nil
	case bytes.Equal(line, errorGenericBytes):
		return &Response{Error: &GenericError{Message: ErrorGeneric}}, nil
	}

	fields := bytes.Fields(line)
	if len(fields) == 0 || len(fields[0]) < 2 {
		return nil, &ParseError{Message: "empty response line"}
	}

	resp := &Response{Status: StatusType(fields[0])}
	fields = fields[1:]

	if resp.Status == StatusMN || resp.Status == StatusOK {
		return resp, nil
	}

	dataSize := -1
	if resp.Status == StatusVA {
		if len(fields) == 0 {
			return nil, &ParseError{Message: "VA response missing size"}
		}
		dataSize, err = strconv.Atoi(string(fields[0]))
		if err != nil {
			return nil, &ParseError{Message: "invalid size in VA response", Err: err}
		}
		if dataSize < 0 || dataSize > maxDataBlock {
			return nil, &ParseError{Message: "size out of range in VA response"}
		}
		fields = fields[1:]
	}

	if len(fields) > 0 {
		resp.Flags = make(Flags, 0, len(fields))
	}
	for _, field := range fields {
		flag := Flag{Type: FlagType(field[0])}
		if len(field) > 1 {
			flag.Token = string(field[1:])
		}
		resp.Flags = append(resp.Flags, flag)
	}

	if dataSize >= 0 {
		data := make([]byte, dataSize+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, &ParseError{Message: "failed to read data block", Err: err}
		}
		if !bytes.HasSuffix(data, crlfBytes) {
			return nil, &ParseError{Message: "invalid data block terminator"}
		}
		resp.Data = data[:dataSize]
	}

	return resp, nil
}
