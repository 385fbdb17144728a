package bridge

import (
	"encoding/json"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/sorter"
)

// Client to server methods.
const (
	MethodOpenDocument   = "openDocument"
	MethodChangeDocument = "changeDocument"
	MethodCloseDocument  = "closeDocument"
	MethodWillSave       = "willSave"
	MethodSortDocument   = "sortDocument"
	MethodSortSelection  = "sortSelection"
	MethodSortProject    = "sortProject"
	MethodConfigChanged  = "configChanged"
)

// Server to client notifications.
const (
	NotifyApplyEdits = "applyEdits"
	NotifyDecorate   = "decorate"
	NotifyDispose    = "dispose"
	NotifyNotice     = "notice"
)

// Error codes. The negative 32xxx range follows JSON-RPC.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	CodeConfigMissing  = -32001
	CodeNoWorkspace    = -32002
	CodeUnknownDoc     = -32003
)

type rpcRequest struct {
	ID     any             `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

type rpcNotification struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// Position is a zero-based line and character column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func toPosition(p host.Position) Position {
	return Position{Line: p.Line, Column: p.Column}
}

// Range carries both character offsets and positions so clients can use
// whichever addressing their editor prefers.
type Range struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	StartPos Position `json:"startPos"`
	EndPos   Position `json:"endPos"`
}

func wireRange(text string, r host.Range) Range {
	return Range{
		Start:    r.Start,
		End:      r.End,
		StartPos: toPosition(host.PositionAt(text, r.Start)),
		EndPos:   toPosition(host.PositionAt(text, r.End)),
	}
}

type uriParams struct {
	URI string `json:"uri"`
}

type openParams struct {
	URI        string `json:"uri"`
	Path       string `json:"path,omitempty"`
	LanguageID string `json:"languageId,omitempty"`
	Text       string `json:"text"`
}

type changeParams struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type selectionParams struct {
	URI   string `json:"uri"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type configParams struct {
	Sections []string `json:"sections,omitempty"`
}

// Edit is one replacement sent with applyEdits, addressed against the text
// before the batch.
type Edit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// ApplyEditsParams is the payload of an applyEdits notification.
type ApplyEditsParams struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Edits   []Edit `json:"edits"`
}

// DecorateParams is the payload of a decorate notification.
type DecorateParams struct {
	ID    string `json:"id"`
	URI   string `json:"uri"`
	Range Range  `json:"range"`
	Color string `json:"color"`
}

// DisposeParams is the payload of a dispose notification.
type DisposeParams struct {
	ID string `json:"id"`
}

// NoticeParams is the payload of a notice notification.
type NoticeParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// MovedToken is a highlighted token in a sort result.
type MovedToken struct {
	Token string `json:"token"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SortResult answers sortDocument, sortSelection and willSave.
type SortResult struct {
	Edits   int          `json:"edits"`
	Moved   []MovedToken `json:"moved"`
	CycleID string       `json:"cycleId,omitempty"`
}

func toSortResult(res sorter.Result) SortResult {
	out := SortResult{Edits: res.Edits, CycleID: res.CycleID, Moved: []MovedToken{}}
	for _, p := range res.Moved {
		out.Moved = append(out.Moved, movedToken(p))
	}
	return out
}

func movedToken(p annotate.Placement) MovedToken {
	r := p.Range()
	return MovedToken{Token: p.Token, Start: r.Start, End: r.End}
}

// ProjectResult answers sortProject.
type ProjectResult struct {
	Stdout   []string `json:"stdout"`
	Stderr   []string `json:"stderr"`
	ExitCode int      `json:"exitCode"`
}

type statusResult struct {
	Status string `json:"status"`
}
