// Package lsp implements a language server for files using #include
// directives. It reports resolution errors as diagnostics and turns
// include lines into links.
package lsp

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/source"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "unfold"

var log = commonlog.GetLogger("unfold.lsp")

type Server struct {
	workspace *Workspace
	handler   protocol.Handler
	server    *server.Server
	version   string
}

func NewServer(version string) *Server {
	ls := &Server{
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:                     ls.initialize,
		Initialized:                    ls.initialized,
		Shutdown:                       ls.shutdown,
		SetTrace:                       ls.setTrace,
		TextDocumentDidOpen:            ls.textDocumentDidOpen,
		TextDocumentDidChange:          ls.textDocumentDidChange,
		TextDocumentDidClose:           ls.textDocumentDidClose,
		TextDocumentDidSave:            ls.textDocumentDidSave,
		TextDocumentDocumentLink:       ls.textDocumentDocumentLink,
		TextDocumentDefinition:         ls.textDocumentDefinition,
		TextDocumentHover:              ls.textDocumentHover,
		WorkspaceDidChangeWatchedFiles: ls.workspaceDidChangeWatchedFiles,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}

	ls.workspace = NewWorkspace(rootDir)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.DocumentLinkProvider = &protocol.DocumentLinkOptions{
		ResolveProvider: boolPtr(false),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Infof("workspace %s", ls.workspace.RootDir())
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	ls.publish(ctx, ls.workspace.Open(path, params.TextDocument.Text))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	for _, change := range params.ContentChanges {
		if c, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.publish(ctx, ls.workspace.Open(path, c.Text))
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	ls.workspace.Close(path)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if params.Text != nil {
		ls.workspace.Open(path, *params.Text)
	}
	ls.refresh(ctx)
	return nil
}

func (ls *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	ls.refresh(ctx)
	return nil
}

// refresh drops cached disk content and re-checks every open document, as
// any of them may include the file that changed.
func (ls *Server) refresh(ctx *glsp.Context) {
	ls.workspace.Reload()
	for _, doc := range ls.workspace.Reanalyze() {
		ls.publish(ctx, doc)
	}
}

func (ls *Server) publish(ctx *glsp.Context, doc *Document) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         pathToURI(doc.Path),
		Diagnostics: Diagnostics(doc),
	})
}

func (ls *Server) document(uri protocol.DocumentUri) (*Document, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	doc := ls.workspace.Document(path)
	if doc == nil {
		return nil, fmt.Errorf("%s: document is not open", path)
	}
	return doc, nil
}

func (ls *Server) textDocumentDocumentLink(ctx *glsp.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	doc, err := ls.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return Links(doc), nil
}

func (ls *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, err := ls.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	inc := doc.IncludeAt(int(params.Position.Line))
	if inc == nil || !linkable(inc.Target) {
		return nil, nil
	}
	return protocol.Location{
		URI: pathToURI(inc.Target),
	}, nil
}

func (ls *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := ls.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	inc := doc.IncludeAt(int(params.Position.Line))
	if inc == nil {
		return nil, nil
	}
	r := includeRange(inc)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: HoverText(inc),
		},
		Range: &r,
	}, nil
}

// Diagnostics converts the error of doc into editor diagnostics. The error
// is reported on the line of doc that led to it; frames from nested files
// are attached as related information.
func Diagnostics(doc *Document) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if doc.Err == nil {
		return diagnostics
	}

	frames := include.Trace(doc.Err)
	line := 0
	found := false
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].File == doc.Path {
			line = frames[i].Line
			found = true
			break
		}
	}
	if !found && len(frames) > 0 {
		log.Debugf("%s: error outside the document: %v", doc.Path, doc.Err)
	}

	var related []protocol.DiagnosticRelatedInformation
	for i, frame := range frames {
		if frame.File == doc.Path || !linkable(frame.File) {
			continue
		}
		msg := "included here"
		if i == 0 {
			msg = "error here"
		}
		related = append(related, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{
				URI:   pathToURI(frame.File),
				Range: lineRange(frame.Line),
			},
			Message: msg,
		})
	}

	severity := protocol.DiagnosticSeverityError
	src := lsName
	return append(diagnostics, protocol.Diagnostic{
		Range:              lineRange(line),
		Severity:           &severity,
		Source:             &src,
		Message:            rootCause(doc.Err),
		RelatedInformation: related,
	})
}

// rootCause returns the message of err without the file and line frames.
func rootCause(err error) string {
	for {
		var perr *include.PosError
		if !errors.As(err, &perr) || perr.Err == nil {
			return err.Error()
		}
		err = perr.Err
	}
}

// Links returns a link for every include of doc that names a file on disk.
func Links(doc *Document) []protocol.DocumentLink {
	links := []protocol.DocumentLink{}
	for i := range doc.Includes {
		inc := &doc.Includes[i]
		if !linkable(inc.Target) {
			continue
		}
		target := pathToURI(inc.Target)
		tooltip := inc.Target
		links = append(links, protocol.DocumentLink{
			Range:   includeRange(inc),
			Target:  &target,
			Tooltip: &tooltip,
		})
	}
	return links
}

func HoverText(inc *Include) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s`\n\n", inc.Target)
	if archive, ok := source.Archive(inc.Target); ok {
		fmt.Fprintf(&b, "from archive `%s`\n\n", archive)
	}
	switch inc.Lines {
	case 0:
		b.WriteString("expands to nothing here")
	case 1:
		b.WriteString("expands to 1 line")
	default:
		fmt.Fprintf(&b, "expands to %d lines", inc.Lines)
	}
	return b.String()
}

// linkable reports whether id is a plain file an editor can open.
func linkable(id string) bool {
	_, inArchive := source.Archive(id)
	return filepath.IsAbs(id) && !inArchive
}

func includeRange(inc *Include) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(inc.Line), Character: protocol.UInteger(inc.Start)},
		End:   protocol.Position{Line: protocol.UInteger(inc.Line), Character: protocol.UInteger(inc.End)},
	}
}

func lineRange(line int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line)},
		End:   protocol.Position{Line: protocol.UInteger(line + 1)},
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
