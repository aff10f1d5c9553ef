// Package meta implements the wire format of the memcached meta protocol
// (mg, ms, md, ma, mn) plus the text flush_all command.
//
// Request and Response are plain data. WriteRequest serializes a request,
// ReadResponse parses one response. Connections, pooling and pipelining are
// left to the caller:
//
//	w := bufio.NewWriter(conn)
//	meta.WriteRequest(w, meta.NewRequest(meta.CmdGet, "k1", nil, []meta.Flag{{Type: 'v'}, {Type: 'k'}, {Type: 'q'}}))
//	meta.WriteRequest(w, meta.NewRequest(meta.CmdGet, "k2", nil, []meta.Flag{{Type: 'v'}, {Type: 'k'}, {Type: 'q'}}))
//	meta.WriteRequest(w, meta.NewRequest(meta.CmdNoOp, "", nil, nil))
//	w.Flush()
//
//	r := bufio.NewReader(conn)
//	for {
//	    resp, err := meta.ReadResponse(r)
//	    if err != nil || resp.Status == meta.StatusMN {
//	        break
//	    }
//	    // resp.Key(), resp.Data
//	}
//
// Errors carry the connection state: ShouldCloseConnection reports whether the
// stream can still be used after err.
package meta
