package meta

import "strconv"

// Response is a parsed server response.
type Response struct {
	// Status is the response code: HD, VA, EN, NF, NS, EX, MN or OK.
	// It is empty when Error is set.
	Status StatusType

	// Data is the value block of a VA response.
	Data []byte

	// Flags are the return flags, in wire order.
	Flags Flags

	// Error is set for ERROR, CLIENT_ERROR and SERVER_ERROR lines.
	Error error
}

// IsSuccess reports a successful operation: HD, VA, MN or OK.
func (r *Response) IsSuccess() bool {
	switch r.Status {
	case StatusHD, StatusVA, StatusMN, StatusOK:
		return true
	default:
		return false
	}
}

// IsMiss reports EN or NF.
func (r *Response) IsMiss() bool {
	return r.Status == StatusEN || r.Status == StatusNF
}

// IsNotStored reports NS.
func (r *Response) IsNotStored() bool {
	return r.Status == StatusNS
}

// IsExists reports EX.
func (r *Response) IsExists() bool {
	return r.Status == StatusEX
}

// HasValue reports a VA response with a value block.
func (r *Response) HasValue() bool {
	return r.Status == StatusVA && r.Data != nil
}

// IsStale reports a value invalidated by md I, still served until its TTL.
func (r *Response) IsStale() bool {
	return r.Flags.Has(FlagStale)
}

// HasError reports a protocol error line.
func (r *Response) HasError() bool {
	return r.Error != nil
}

// Key returns the key echoed back with FlagReturnKey.
func (r *Response) Key() (string, bool) {
	return r.Flags.Get(FlagReturnKey)
}

// ClientFlags returns the client flags echoed back with FlagReturnClientFlags.
// A missing or malformed token yields ok=false.
func (r *Response) ClientFlags() (uint32, bool) {
	token, ok := r.Flags.Get(FlagReturnClientFlags)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
