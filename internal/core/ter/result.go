package ter

import "fmt"

// Result represents the outcome of a liquidity calculation or crossing.
type Result int

// Result codes used by the payment engine, organized by category:
// tes, tec, tef, tel, tem, ter. Values match divvyd.
const (
	// tesSUCCESS (0-99)
	TesSUCCESS Result = 0

	// tec: claimed cost, the operation failed but may still be recorded (100-199)
	TecPATH_PARTIAL      Result = 101
	TecUNFUNDED_OFFER    Result = 103
	TecUNFUNDED_PAYMENT  Result = 104
	TecFAILED_PROCESSING Result = 105
	TecPATH_DRY          Result = 128
	TecNO_LINE           Result = 135
	TecKILLED            Result = 150

	// tef: failure, never applied (-199 to -100)
	TefFAILURE   Result = -199
	TefEXCEPTION Result = -193
	TefINTERNAL  Result = -192

	// tel: local error (-399 to -300)
	TelLOCAL_ERROR       Result = -399
	TelBAD_PATH_COUNT    Result = -397
	TelFAILED_PROCESSING Result = -395

	// tem: malformed input (-299 to -200)
	TemMALFORMED              Result = -299
	TemBAD_AMOUNT             Result = -298
	TemBAD_CURRENCY           Result = -297
	TemBAD_ISSUER             Result = -294
	TemBAD_OFFER              Result = -292
	TemBAD_PATH               Result = -291
	TemBAD_PATH_LOOP          Result = -290
	TemBAD_SEND_XDV_LIMIT     Result = -288
	TemBAD_SEND_XDV_MAX       Result = -287
	TemBAD_SEND_XDV_NO_DIRECT Result = -286
	TemBAD_SEND_XDV_PARTIAL   Result = -285
	TemBAD_SEND_XDV_PATHS     Result = -284
	TemDST_IS_SRC             Result = -279
	TemDIVVY_EMPTY            Result = -274
	TemUNCERTAIN              Result = -265
	TemUNKNOWN                Result = -264

	// ter: retry, the path or operation may succeed later (-99 to -1)
	TerRETRY      Result = -99
	TerNO_ACCOUNT Result = -96
	TerNO_AUTH    Result = -95
	TerNO_LINE    Result = -94
	TerNO_DIVVY   Result = -90
)

var tokens = map[Result]string{
	TesSUCCESS:                "tesSUCCESS",
	TecPATH_PARTIAL:           "tecPATH_PARTIAL",
	TecUNFUNDED_OFFER:         "tecUNFUNDED_OFFER",
	TecUNFUNDED_PAYMENT:       "tecUNFUNDED_PAYMENT",
	TecFAILED_PROCESSING:      "tecFAILED_PROCESSING",
	TecPATH_DRY:               "tecPATH_DRY",
	TecNO_LINE:                "tecNO_LINE",
	TecKILLED:                 "tecKILLED",
	TefFAILURE:                "tefFAILURE",
	TefEXCEPTION:              "tefEXCEPTION",
	TefINTERNAL:               "tefINTERNAL",
	TelLOCAL_ERROR:            "telLOCAL_ERROR",
	TelBAD_PATH_COUNT:         "telBAD_PATH_COUNT",
	TelFAILED_PROCESSING:      "telFAILED_PROCESSING",
	TemMALFORMED:              "temMALFORMED",
	TemBAD_AMOUNT:             "temBAD_AMOUNT",
	TemBAD_CURRENCY:           "temBAD_CURRENCY",
	TemBAD_ISSUER:             "temBAD_ISSUER",
	TemBAD_OFFER:              "temBAD_OFFER",
	TemBAD_PATH:               "temBAD_PATH",
	TemBAD_PATH_LOOP:          "temBAD_PATH_LOOP",
	TemBAD_SEND_XDV_LIMIT:     "temBAD_SEND_XDV_LIMIT",
	TemBAD_SEND_XDV_MAX:       "temBAD_SEND_XDV_MAX",
	TemBAD_SEND_XDV_NO_DIRECT: "temBAD_SEND_XDV_NO_DIRECT",
	TemBAD_SEND_XDV_PARTIAL:   "temBAD_SEND_XDV_PARTIAL",
	TemBAD_SEND_XDV_PATHS:     "temBAD_SEND_XDV_PATHS",
	TemDST_IS_SRC:             "temDST_IS_SRC",
	TemDIVVY_EMPTY:            "temDIVVY_EMPTY",
	TemUNCERTAIN:              "temUNCERTAIN",
	TemUNKNOWN:                "temUNKNOWN",
	TerRETRY:                  "terRETRY",
	TerNO_ACCOUNT:             "terNO_ACCOUNT",
	TerNO_AUTH:                "terNO_AUTH",
	TerNO_LINE:                "terNO_LINE",
	TerNO_DIVVY:               "terNO_DIVVY",
}

var byToken = func() map[string]Result {
	m := make(map[string]Result, len(tokens))
	for r, s := range tokens {
		m[s] = r
	}
	return m
}()

// String returns the token of the result code
func (r Result) String() string {
	if s, ok := tokens[r]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

// ParseResult looks up a result by token, e.g. "tecPATH_DRY".
func ParseResult(token string) (Result, error) {
	if r, ok := byToken[token]; ok {
		return r, nil
	}
	return TemUNKNOWN, fmt.Errorf("unknown result token %q", token)
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	v, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// IsSuccess returns true for tesSUCCESS
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec returns true if this is a tec (claimed cost) code
func (r Result) IsTec() bool {
	return r >= 100 && r < 200
}

// IsTef returns true if this is a tef (failure) code
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTel returns true if this is a tel (local error) code
func (r Result) IsTel() bool {
	return r >= -399 && r <= -300
}

// IsTem returns true if this is a tem (malformed) code
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}

// IsTer returns true if this is a ter (retry) code
func (r Result) IsTer() bool {
	return r >= -99 && r <= -1
}

// IsApplied returns true if ledger changes may be kept: tesSUCCESS and tec
// codes.
func (r Result) IsApplied() bool {
	return r.IsSuccess() || r.IsTec()
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	switch r {
	case TesSUCCESS:
		return "The payment was computed and applied."
	case TecPATH_PARTIAL:
		return "Path could not send full amount."
	case TecUNFUNDED_OFFER:
		return "Insufficient balance to fund created offer."
	case TecUNFUNDED_PAYMENT:
		return "Insufficient XDV balance to send."
	case TecFAILED_PROCESSING:
		return "Failed to correctly process transaction."
	case TecPATH_DRY:
		return "Path could not send partial amount."
	case TecNO_LINE:
		return "No such line."
	case TecKILLED:
		return "Fill-or-kill offer killed."
	case TefEXCEPTION:
		return "Unexpected program state."
	case TefINTERNAL:
		return "Internal error."
	case TelBAD_PATH_COUNT:
		return "Malformed: Too many paths."
	case TelFAILED_PROCESSING:
		return "Failed to correctly process transaction."
	case TemMALFORMED:
		return "Malformed transaction."
	case TemBAD_AMOUNT:
		return "Can only send positive amounts."
	case TemBAD_CURRENCY:
		return "Malformed: Bad currency."
	case TemBAD_ISSUER:
		return "Malformed: Bad issuer."
	case TemBAD_OFFER:
		return "Malformed: Bad offer."
	case TemBAD_PATH:
		return "Malformed: Bad path."
	case TemBAD_PATH_LOOP:
		return "Malformed: Loop in path."
	case TemBAD_SEND_XDV_LIMIT:
		return "Malformed: Limit quality is not allowed for XDV to XDV."
	case TemBAD_SEND_XDV_MAX:
		return "Malformed: Send max is not allowed for XDV to XDV."
	case TemBAD_SEND_XDV_NO_DIRECT:
		return "Malformed: No Divvy direct is not allowed for XDV to XDV."
	case TemBAD_SEND_XDV_PARTIAL:
		return "Malformed: Partial payment is not allowed for XDV to XDV."
	case TemBAD_SEND_XDV_PATHS:
		return "Malformed: Paths are not allowed for XDV to XDV."
	case TemDST_IS_SRC:
		return "Destination may not be source."
	case TemDIVVY_EMPTY:
		return "PathSet with no paths."
	case TemUNCERTAIN:
		return "In process of determining result. Never returned."
	case TerNO_ACCOUNT:
		return "The source account does not exist."
	case TerNO_AUTH:
		return "Not authorized to hold IOUs."
	case TerNO_LINE:
		return "No such line."
	case TerNO_DIVVY:
		return "Path does not permit rippling."
	default:
		return r.String()
	}
}
