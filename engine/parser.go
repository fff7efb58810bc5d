package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/disktriage/model"
)

// ParserContext is the state threaded through one stream. The correlation
// hints (SASIndex, Target, Devname) are overwritten by newer originator and
// identification lines but never cleared, so they carry over into later
// sequences. A terminating line for another disk after a commit without fresh
// identification lines therefore trips the identity check.
type ParserContext struct {
	SASIndex string
	Target   string
	Devname  string
	Buffer   []string
}

// Buffering reports whether the context holds an uncommitted sequence.
func (c ParserContext) Buffering() bool { return len(c.Buffer) > 0 }

// LineSource yields lines of a single log stream.
type LineSource interface {
	Next() (string, bool)
	Err() error
}

// ParseStats counts what one stream contained.
type ParseStats struct {
	Lines   int              `json:"lines"`
	Kernel  int              `json:"kernel"`
	Commits int              `json:"commits"`
	Flushed int              `json:"flushed"` // trailing lines attached at end of stream
	Kinds   map[LineKind]int `json:"kinds"`
}

func (s *ParseStats) add(o ParseStats) {
	s.Lines += o.Lines
	s.Kernel += o.Kernel
	s.Commits += o.Commits
	s.Flushed += o.Flushed
	if s.Kinds == nil {
		s.Kinds = make(map[LineKind]int)
	}
	for k, n := range o.Kinds {
		s.Kinds[k] += n
	}
}

// Parser folds kernel log lines into registry records.
type Parser struct {
	Registry *Registry
	File     string           // used in error messages
	Now      func() time.Time // year resolution for syslog timestamps
	Devices  map[string]bool  // when non-empty only these devices are recorded
	Verbose  bool             // log unrecognized lines

	lineNo int
	stats  ParseStats
}

// NewParser creates a parser writing into reg.
func NewParser(reg *Registry, file string) *Parser {
	return &Parser{Registry: reg, File: file, Now: time.Now}
}

// Stats returns counters for the lines seen so far.
func (p *Parser) Stats() ParseStats { return p.stats }

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Step applies one raw line to ctx and returns the new context.
func (p *Parser) Step(ctx ParserContext, raw string) (ParserContext, error) {
	p.lineNo++
	p.stats.Lines++
	if p.stats.Kinds == nil {
		p.stats.Kinds = make(map[LineKind]int)
	}

	h, ok := ParseHeader(raw)
	if !ok {
		return ctx, nil
	}
	p.stats.Kernel++

	ln := Classify(h.Rest)
	p.stats.Kinds[ln.Kind]++

	switch {
	case ln.Kind == LineOriginator:
		ctx.SASIndex = ln.SASIndex
		ctx.Buffer = append(ctx.Buffer, raw)
	case ln.Kind == LineTarget:
		ctx.Target = ln.Target
		ctx.Devname = ln.Devname
		ctx.Buffer = append(ctx.Buffer, raw)
	case ln.Kind.Interior():
		ctx.Buffer = append(ctx.Buffer, raw)
	case ln.Kind.Terminating():
		return p.commit(ctx, h, ln, raw)
	case ln.Kind == LineNoise:
	default:
		if p.Verbose {
			log.Debug().Str("file", p.File).Int("line", p.lineNo).Str("text", h.Rest).Msg("Unrecognized kernel line")
		}
	}
	return ctx, nil
}

func (p *Parser) commit(ctx ParserContext, h Header, ln Line, raw string) (ParserContext, error) {
	if ctx.Devname != "" && ctx.Devname != ln.Devname {
		return ctx, &IdentityError{File: p.File, LineNo: p.lineNo, Have: ctx.Devname, Got: ln.Devname}
	}
	ctx.Devname = ln.Devname
	lines := append(ctx.Buffer, raw)
	ctx.Buffer = nil

	if len(p.Devices) > 0 && !p.Devices[ln.Devname] {
		return ctx, nil
	}

	rec, err := p.Registry.GetOrCreate(ln.Devname, h.Host)
	if err != nil {
		return ctx, err
	}
	ev := model.ErrorEvent{
		Time:     h.Time(p.now()),
		SASIndex: ctx.SASIndex,
	}
	if ln.Kind == LineBlockIOError {
		ev.Kind = model.KindBlock
		ev.BlockIndex = ln.Partition
		ev.LogicalBlock = ln.LogicalBlock
	} else {
		ev.Kind = model.KindSector
		ev.ErrorType = ln.ErrorType
		ev.Sector = ln.Sector
	}
	p.Registry.Annotate(rec, ctx.Target, ctx.SASIndex)
	p.Registry.AppendEvent(rec, ev)
	p.Registry.AppendRawLines(rec, lines)
	p.stats.Commits++
	return ctx, nil
}

// Finish attaches a trailing, unterminated sequence to the record the context
// is associated with. Without such a record the lines are dropped.
func (p *Parser) Finish(ctx ParserContext) {
	if !ctx.Buffering() || ctx.Devname == "" {
		return
	}
	rec, ok := p.Registry.Lookup(ctx.Devname)
	if !ok {
		log.Debug().Str("file", p.File).Str("device", ctx.Devname).Int("lines", len(ctx.Buffer)).
			Msg("Dropping trailing lines without a record")
		return
	}
	p.Registry.AppendRawLines(rec, ctx.Buffer)
	p.stats.Flushed += len(ctx.Buffer)
}

// ParseStream folds every line of src into the registry. An identity violation
// stops the stream and is returned as *IdentityError; whatever was committed
// before it stays in the registry.
func (p *Parser) ParseStream(src LineSource) error {
	var ctx ParserContext
	var err error
	for {
		raw, ok := src.Next()
		if !ok {
			break
		}
		if ctx, err = p.Step(ctx, raw); err != nil {
			return err
		}
	}
	p.Finish(ctx)
	if err := src.Err(); err != nil {
		return fmt.Errorf("read %s: %w", p.File, err)
	}
	return nil
}
