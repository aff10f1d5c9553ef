package meta

// CmdType is a protocol command keyword.
type CmdType string

// FlagType is a single-character meta flag identifier.
type FlagType byte

// StatusType is a response status code.
type StatusType string

const (
	CRLF  = "\r\n"
	Space = " "
)

// Commands used by the client.
//
//	mg <key> <flags>*\r\n
//	ms <key> <datalen> <flags>*\r\n<data>\r\n
//	md <key> <flags>*\r\n
//	ma <key> <flags>*\r\n
//	mn\r\n
//	flush_all [delay]\r\n
const (
	// CmdGet fetches an item. With FlagReturnValue a hit answers VA, a miss EN.
	CmdGet CmdType = "mg"

	// CmdSet stores an item. The storage mode (set, add, replace, append,
	// prepend) is chosen with FlagMode. Answers HD, NS, EX or NF.
	CmdSet CmdType = "ms"

	// CmdDelete removes an item, or marks it stale when FlagInvalidate is given.
	// Answers HD or NF.
	CmdDelete CmdType = "md"

	// CmdArithmetic increments or decrements a decimal counter.
	// Answers VA with the new value (FlagReturnValue), HD, or NF on a miss.
	CmdArithmetic CmdType = "ma"

	// CmdNoOp answers MN. It terminates quiet pipelines.
	CmdNoOp CmdType = "mn"

	// CmdFlushAll is the text protocol flush command. Answers OK.
	CmdFlushAll CmdType = "flush_all"
)

// Response status codes.
const (
	StatusHD StatusType = "HD" // success, no value
	StatusVA StatusType = "VA" // success, value follows
	StatusEN StatusType = "EN" // miss (mg)
	StatusNF StatusType = "NF" // not found (md, ma, ms append/prepend)
	StatusNS StatusType = "NS" // not stored (ms add/replace)
	StatusEX StatusType = "EX" // exists (CAS mismatch)
	StatusMN StatusType = "MN" // no-op marker
	StatusOK StatusType = "OK" // text protocol success (flush_all)
)

// Non-meta error lines.
const (
	ErrorGeneric      = "ERROR"
	ErrorClientPrefix = "CLIENT_ERROR"
	ErrorServerPrefix = "SERVER_ERROR"
)

// Flags understood by the client.
const (
	FlagBase64Key         FlagType = 'b'
	FlagReturnKey         FlagType = 'k'
	FlagOpaque            FlagType = 'O'
	FlagQuiet             FlagType = 'q'
	FlagReturnCAS         FlagType = 'c'
	FlagReturnClientFlags FlagType = 'f'
	FlagReturnSize        FlagType = 's'
	FlagReturnTTL         FlagType = 't'
	FlagReturnValue       FlagType = 'v'

	// FlagTTL carries a TTL in seconds: T<seconds>. 0 means no expiration.
	FlagTTL FlagType = 'T'

	// FlagClientFlags carries the opaque 32 bit client flags: F<flags>.
	FlagClientFlags FlagType = 'F'

	// FlagMode switches the ms/ma behaviour: M<mode>.
	FlagMode FlagType = 'M'

	// FlagInvalidate marks an item stale instead of removing it (md).
	FlagInvalidate FlagType = 'I'

	// FlagDelta is the arithmetic amount: D<delta>. Defaults to 1.
	FlagDelta FlagType = 'D'
)

// Flags only found in responses.
const (
	// FlagStale marks an item invalidated with md I.
	FlagStale FlagType = 'X'
	// FlagWin tells the client it won the right to recache a stale item.
	FlagWin FlagType = 'W'
)

// Storage modes for FlagMode on ms.
const (
	ModeSet     = "S"
	ModeAdd     = "E"
	ModeReplace = "R"
	ModeAppend  = "A"
	ModePrepend = "P"
)

// Arithmetic modes for FlagMode on ma.
const (
	ModeIncrement = "I"
	ModeDecrement = "D" // stops at 0
)

// Protocol limits.
const (
	MaxKeyLength = 250
	MinKeyLength = 1

	// MaxValueSize is the server's default item size limit.
	MaxValueSize = 1024 * 1024
)
