package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/zjrosen/classwind/internal/annotate"
	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/ranking"
	"github.com/zjrosen/classwind/internal/sorter"
)

var (
	_ host.Decorator        = (*session)(nil)
	_ host.Notifier         = (*session)(nil)
	_ host.DocumentResolver = (*session)(nil)
	_ host.Document         = (*remoteDocument)(nil)
)

// session is the host state of one connected editor: its open documents,
// its highlight cycle and its sort service.
type session struct {
	id   string
	conn *websocket.Conn
	wmu  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	hub     *host.Hub
	manager *annotate.Manager
	svc     *sorter.Service
	load    func() (config.Config, error)

	decorations atomic.Int64
	// background holds requests answered off the read loop.
	background sync.WaitGroup
}

func newSession(id string, conn *websocket.Conn, opts Options) (*session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     id,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		hub:    host.NewHub(opts.Root),
		load:   opts.LoadConfig,
	}
	s.manager = annotate.NewManager(s, s.hub.DocumentChanges(), opts.Config.Highlight.Annotation())

	svc, err := sorter.NewService(opts.Config, sorter.Deps{
		Rankings:   opts.Rankings,
		Highlights: s.manager,
		Notifier:   s,
		Workspace:  s.hub,
		Documents:  s,
		Runner:     opts.Runner,
		Tracer:     opts.Tracer,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.svc = svc
	return s, nil
}

func (s *session) close() {
	s.cancel()
	s.background.Wait()
	s.manager.Close()
	s.hub.Shutdown()
}

// send writes one JSON message. Writes from request handling, highlight
// timers and notices may race, so they share a lock.
func (s *session) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) notify(method string, params any) {
	if err := s.send(rpcNotification{Method: method, Params: params}); err != nil {
		log.Debug(log.CatBridge, "Notification dropped", "session", s.id, "method", method, "error", err)
	}
}

// Decorate asks the editor to paint r.
func (s *session) Decorate(doc host.Document, r host.Range, color string) (host.Decoration, error) {
	id := "d" + strconv.FormatInt(s.decorations.Add(1), 10)
	s.notify(NotifyDecorate, DecorateParams{
		ID:    id,
		URI:   doc.URI(),
		Range: wireRange(doc.Text(), r),
		Color: color,
	})
	return &remoteDecoration{id: id, s: s}, nil
}

type remoteDecoration struct {
	id   string
	s    *session
	once sync.Once
}

func (d *remoteDecoration) Dispose() {
	d.once.Do(func() {
		d.s.notify(NotifyDispose, DisposeParams{ID: d.id})
	})
}

func (s *session) Info(msg string) {
	s.notify(NotifyNotice, NoticeParams{Level: "info", Message: msg})
}

func (s *session) Error(msg string) {
	s.notify(NotifyNotice, NoticeParams{Level: "error", Message: msg})
}

// Document returns the open document for uri, wrapped so its edits reach the
// editor.
func (s *session) Document(_ context.Context, uri string) (host.Document, bool) {
	buf, ok := s.hub.Buffer(uri)
	if !ok {
		return nil, false
	}
	return &remoteDocument{Buffer: buf, s: s}, true
}

// remoteDocument mirrors every edit batch to the editor after applying it to
// the local copy.
type remoteDocument struct {
	*host.Buffer
	s *session
}

func (d *remoteDocument) ApplyEdits(edits []host.Edit) error {
	before := d.Buffer.Text()
	if err := d.Buffer.ApplyEdits(edits); err != nil {
		return err
	}

	wire := make([]Edit, 0, len(edits))
	for _, e := range edits {
		wire = append(wire, Edit{Range: wireRange(before, e.Range), NewText: e.NewText})
	}
	d.s.notify(NotifyApplyEdits, ApplyEditsParams{URI: d.URI(), Version: d.Version(), Edits: wire})
	return nil
}

// dispatch answers req. A project sort can run for as long as the tool
// takes, so it is answered from its own goroutine and the read loop keeps
// serving document requests. The error is only a failed write of the reply.
func (s *session) dispatch(req rpcRequest) error {
	if req.Method != MethodSortProject {
		return s.serve(req)
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.serve(req); err != nil {
			log.Debug(log.CatBridge, "Reply dropped", "session", s.id, "method", req.Method, "error", err)
		}
	}()
	return nil
}

func (s *session) serve(req rpcRequest) error {
	result, rerr := s.handle(req)
	if rerr != nil {
		log.Debug(log.CatBridge, "Request failed", "session", s.id, "method", req.Method, "code", rerr.Code, "error", rerr.Message)
	}
	// Requests without an id are notifications and get no answer.
	if req.ID == nil {
		return nil
	}
	return s.send(rpcResponse{ID: req.ID, Result: result, Error: rerr})
}

func (s *session) handle(req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case MethodOpenDocument:
		return s.openDocument(req.Params)
	case MethodChangeDocument:
		return s.changeDocument(req.Params)
	case MethodCloseDocument:
		return s.closeDocument(req.Params)
	case MethodWillSave:
		return s.willSave(req.Params)
	case MethodSortDocument:
		return s.sortDocument(req.Params)
	case MethodSortSelection:
		return s.sortSelection(req.Params)
	case MethodSortProject:
		return s.sortProject()
	case MethodConfigChanged:
		return s.configChanged(req.Params)
	default:
		return nil, &rpcError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func decode(raw json.RawMessage, v any) *rpcError {
	if len(raw) == 0 {
		return &rpcError{Code: CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &rpcError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *session) document(uri string) (host.Document, *rpcError) {
	if uri == "" {
		return nil, &rpcError{Code: CodeInvalidParams, Message: "uri is required"}
	}
	doc, ok := s.Document(s.ctx, uri)
	if !ok {
		return nil, &rpcError{Code: CodeUnknownDoc, Message: fmt.Sprintf("document not open: %s", uri)}
	}
	return doc, nil
}

func (s *session) openDocument(raw json.RawMessage) (any, *rpcError) {
	var p openParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, &rpcError{Code: CodeInvalidParams, Message: "uri is required"}
	}
	lang := p.LanguageID
	if lang == "" {
		lang = host.LanguageForPath(p.Path)
	}
	buf := s.hub.Open(p.URI, p.Path, lang, p.Text)
	log.Debug(log.CatBridge, "Document opened", "session", s.id, "uri", p.URI, "language", lang)
	return map[string]any{"uri": buf.URI(), "languageId": buf.LanguageID(), "version": buf.Version()}, nil
}

// changeDocument syncs the editor's full text. A text equal to the local copy
// is the echo of an applyEdits and changes nothing.
func (s *session) changeDocument(raw json.RawMessage) (any, *rpcError) {
	var p changeParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	buf, ok := s.hub.Buffer(p.URI)
	if !ok {
		return nil, &rpcError{Code: CodeUnknownDoc, Message: fmt.Sprintf("document not open: %s", p.URI)}
	}
	if buf.Text() != p.Text {
		buf.SetText(p.Text)
	}
	return map[string]int{"version": buf.Version()}, nil
}

func (s *session) closeDocument(raw json.RawMessage) (any, *rpcError) {
	var p uriParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	s.hub.Close(p.URI)
	return statusResult{Status: "closed"}, nil
}

// willSave sorts the document before the editor writes it when run_on_save
// is enabled. It answers after the edits have been sent.
func (s *session) willSave(raw json.RawMessage) (any, *rpcError) {
	var p uriParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	doc, rerr := s.document(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	if !s.svc.Config().RunOnSave {
		return toSortResult(sorter.Result{}), nil
	}
	res, err := s.svc.SortDocument(s.ctx, doc)
	if err != nil {
		return nil, sortError(err)
	}
	return toSortResult(res), nil
}

func (s *session) sortDocument(raw json.RawMessage) (any, *rpcError) {
	var p uriParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	doc, rerr := s.document(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	res, err := s.svc.SortDocument(s.ctx, doc)
	if err != nil {
		return nil, sortError(err)
	}
	return toSortResult(res), nil
}

func (s *session) sortSelection(raw json.RawMessage) (any, *rpcError) {
	var p selectionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	doc, rerr := s.document(p.URI)
	if rerr != nil {
		return nil, rerr
	}
	res, err := s.svc.SortSelection(s.ctx, doc, host.Range{Start: p.Start, End: p.End})
	if err != nil {
		return nil, sortError(err)
	}
	return toSortResult(res), nil
}

func (s *session) sortProject() (any, *rpcError) {
	res, err := s.svc.SortProject(s.ctx)
	if errors.Is(err, sorter.ErrNoWorkspace) {
		return nil, sortError(err)
	}
	// A failing tool already produced notices; the output is still returned.
	return ProjectResult{Stdout: nonNil(res.Stdout), Stderr: nonNil(res.Stderr), ExitCode: res.ExitCode}, nil
}

// configChanged reloads the configuration. Sections default to whatever
// differs from the configuration in effect.
func (s *session) configChanged(raw json.RawMessage) (any, *rpcError) {
	var p configParams
	if len(raw) > 0 {
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
	}
	if s.load == nil {
		return statusResult{Status: "unchanged"}, nil
	}

	next, err := s.load()
	if err != nil {
		log.ErrorErr(log.CatConfig, "Reloading config failed", err, "session", s.id)
		return nil, &rpcError{Code: CodeServerError, Message: err.Error()}
	}
	prev := s.svc.Config()
	if err := s.svc.SetConfig(next); err != nil {
		return nil, &rpcError{Code: CodeServerError, Message: err.Error()}
	}

	sections := p.Sections
	if len(sections) == 0 {
		sections = config.ChangedSections(prev, next)
	}
	if (host.ConfigEvent{Sections: sections}).Affects(config.SectionHighlight) {
		s.manager.SetConfig(next.Highlight.Annotation())
	}
	s.hub.NotifyConfigChanged(sections...)
	log.Info(log.CatConfig, "Config reloaded", "session", s.id, "sections", sections)
	return map[string][]string{"sections": nonNil(sections)}, nil
}

func sortError(err error) *rpcError {
	switch {
	case errors.Is(err, sorter.ErrConfigMissing), errors.Is(err, ranking.ErrNotFound):
		return &rpcError{Code: CodeConfigMissing, Message: err.Error()}
	case errors.Is(err, sorter.ErrNoWorkspace):
		return &rpcError{Code: CodeNoWorkspace, Message: err.Error()}
	case errors.Is(err, host.ErrInvalidRange):
		return &rpcError{Code: CodeInvalidParams, Message: err.Error()}
	default:
		return &rpcError{Code: CodeServerError, Message: err.Error()}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
