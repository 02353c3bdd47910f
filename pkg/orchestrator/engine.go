package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/compile"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/generation"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/logging"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/notify"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

// OutcomeState is how a run ended.
type OutcomeState string

const (
	// OutcomeDelivered means the book reached its terminal state.
	OutcomeDelivered OutcomeState = "delivered"

	// OutcomeBlocked means a gate paused the run; re-run after the
	// editor updates it.
	OutcomeBlocked OutcomeState = "blocked"

	// OutcomeFailed means the run gave up on an error.
	OutcomeFailed OutcomeState = "failed"
)

// Outcome describes where a run stopped and why.
type Outcome struct {
	State  OutcomeState
	Stage  string
	Detail string
}

// Engine drives one book at a time through the workflow. All progress
// lives in the store; the engine holds no run state between calls, so
// any run can be resumed by calling Run again.
type Engine struct {
	cfg      *config.Config
	store    *storage.Store
	gen      generation.Service
	compiler *compile.Coordinator
	notifier *notify.Manager
	logger   *logging.Logger
	retry    *retryer
	owner    string
}

// NewEngine wires an engine. The notifier and logger may be nil; the
// engine then works silently.
func NewEngine(cfg *config.Config, store *storage.Store, gen generation.Service, compiler *compile.Coordinator, notifier *notify.Manager, logger *logging.Logger, owner string) *Engine {
	if owner == "" {
		owner = "engine"
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		gen:      gen,
		compiler: compiler,
		notifier: notifier,
		logger:   logger,
		retry:    newRetryer(cfg.RetryPolicy),
		owner:    owner,
	}
}

// run is one Run invocation. It carries the per-book logger so
// concurrent runs of different books never share log state.
type run struct {
	*Engine
	log *logging.Logger
}

// Run advances one book as far as the gates allow. The next action is
// re-derived purely from persisted state, never from memory, so a
// crashed or blocked run picks up exactly where the store says it
// stopped. Delivered books return immediately without any generation
// calls or writes.
func (e *Engine) Run(ctx context.Context, bookID string) (Outcome, error) {
	r := &run{Engine: e, log: e.logger}
	if e.cfg.Logging.Dir != "" {
		if bl, err := logging.NewLogger(e.cfg.Logging.Dir, bookID); err == nil {
			bl.SetMinLevel(logging.ParseLevel(e.cfg.Logging.MinLevel))
			defer bl.Close()
			r.log = bl
		}
	}
	return r.runBook(ctx, bookID)
}

func (e *run) runBook(ctx context.Context, bookID string) (Outcome, error) {
	book, err := e.store.GetBook(bookID)
	if err != nil {
		return Outcome{State: OutcomeFailed, Stage: "load"},
			bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "load book").WithContext("book_id", bookID)
	}
	if book == nil {
		return Outcome{State: OutcomeFailed, Stage: "load"},
			bferrors.New(bferrors.ErrCodePrecondition, "book not found").WithContext("book_id", bookID)
	}

	switch book.Status {
	case storage.BookStatusDelivered:
		return Outcome{State: OutcomeDelivered, Stage: "done", Detail: book.OutputURL}, nil
	case storage.BookStatusFailed:
		return Outcome{State: OutcomeFailed, Stage: "done", Detail: book.LastError}, nil
	}

	claimed, err := e.store.ClaimBook(bookID, e.owner, e.cfg.Storage.ClaimTTL)
	if err != nil {
		return Outcome{State: OutcomeFailed, Stage: "claim"},
			bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "claim book").WithContext("book_id", bookID)
	}
	if !claimed {
		e.logInfo(logging.CategoryWorkflow, "claim_refused", bookID, 0, "book is being processed elsewhere")
		return Outcome{State: OutcomeBlocked, Stage: "claim", Detail: "claimed by another run"}, nil
	}
	defer func() { _ = e.store.ReleaseBook(bookID, e.owner) }()

	if outcome, done, err := e.runOutline(ctx, book); done || err != nil {
		return outcome, err
	}

	// Reload: the outline stage may have rewritten the pointer.
	book, err = e.store.GetBook(bookID)
	if err != nil || book == nil {
		return Outcome{State: OutcomeFailed, Stage: "outline"},
			bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "reload book after outline").WithContext("book_id", bookID)
	}

	if outcome, done, err := e.runSections(ctx, book); done || err != nil {
		return outcome, err
	}

	return e.runReviewAndCompile(ctx, book)
}

// runOutline handles OUTLINE_GATE and OUTLINE_GENERATE. done means the
// run stops here.
func (e *run) runOutline(ctx context.Context, book *storage.Book) (Outcome, bool, error) {
	status := ParseGateStatus(book.OutlineGate)
	decision := EvaluateGate(status)

	// A regeneration with notes is only honored while no section work
	// exists; rewriting the outline under generated sections would
	// orphan them.
	needsOutline := book.Outline == "" ||
		(decision == GateProceedWithNotes && book.NextSection == 1)
	if !needsOutline {
		return Outcome{}, false, nil
	}

	if decision == GatePause {
		return e.block(ctx, book, "outline",
			fmt.Sprintf("outline gate is %q, waiting for the editor", status)), true, nil
	}

	req := generation.Request{
		Kind:          generation.PromptOutline,
		Title:         book.Title,
		Instructions:  book.Instructions,
		SectionTarget: e.cfg.Generation.SectionTarget,
	}
	if decision == GateProceedWithNotes {
		req.Notes = book.OutlineNotes
	}

	var text string
	err := e.retry.do(ctx, func(attempt int) error {
		if attempt > 0 {
			recordGenerationRetry()
			e.logInfo(logging.CategoryRetry, "outline_retry", book.ID, 0,
				fmt.Sprintf("outline generation attempt %d", attempt+1))
		}
		var genErr error
		text, genErr = e.gen.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return e.fail(ctx, book, "outline", err), true, err
	}

	titles, err := generation.ParseOutline(text)
	if err != nil {
		return e.fail(ctx, book, "outline", err), true, err
	}
	if err := e.store.SaveOutline(book.ID, text, titles); err != nil {
		err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "persist outline").WithContext("book_id", book.ID)
		return e.fail(ctx, book, "outline", err), true, err
	}

	e.logInfo(logging.CategoryWorkflow, "outline_generated", book.ID, 0,
		fmt.Sprintf("outline generated with %d sections", len(titles)))
	e.emit(ctx, book, notify.EventOutlineReady, 0, func(n *notify.Manager) error {
		return n.NotifyOutlineReady(ctx, book.ID, book.Title)
	})
	return Outcome{}, false, nil
}

// runSections walks SECTIONS_LOOP from the persisted pointer. Every
// completed section persists text, then its summary, then advances the
// pointer; a crash between those writes re-runs the section, never
// skips it.
func (e *run) runSections(ctx context.Context, book *storage.Book) (Outcome, bool, error) {
	if book.NextSection > book.TotalSections {
		return Outcome{}, false, nil
	}

	marked := book.Status == storage.BookStatusSectionsInProgress

	for n := book.NextSection; n <= book.TotalSections; n++ {
		// The gate is re-read before every section so an editor can
		// stop the loop between sections of a running book.
		fresh, err := e.store.GetBook(book.ID)
		if err != nil || fresh == nil {
			err = bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "reload book in sections loop").
				WithContext("book_id", book.ID)
			return e.fail(ctx, book, "sections", err), true, err
		}
		status := ParseGateStatus(fresh.SectionGate)
		decision := EvaluateGate(status)
		if decision == GatePause {
			return e.block(ctx, book, "sections",
				fmt.Sprintf("section gate is %q, waiting for the editor", status)), true, nil
		}

		if !marked {
			if err := e.store.SetBookStatus(book.ID, storage.BookStatusSectionsInProgress); err != nil {
				err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "mark sections in progress")
				return e.fail(ctx, book, "sections", err), true, err
			}
			marked = true
		}

		section, err := e.store.GetSection(book.ID, n)
		if err != nil {
			err = bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "load section shell").
				WithContext("book_id", book.ID).WithContext("section", n)
			return e.fail(ctx, book, "sections", err), true, err
		}

		summaries, err := buildContext(e.store, book.ID, n)
		if err != nil {
			return e.fail(ctx, book, "sections", err), true, err
		}

		req := generation.Request{
			Kind:              generation.PromptSection,
			Title:             book.Title,
			Instructions:      book.Instructions,
			Outline:           book.Outline,
			SectionNumber:     n,
			SectionTitle:      section.Title,
			TotalSections:     book.TotalSections,
			PreviousSummaries: summaries,
		}
		if decision == GateProceedWithNotes {
			req.Notes = fresh.SectionNotes
		}

		var text string
		err = e.retry.do(ctx, func(attempt int) error {
			if attempt > 0 {
				recordGenerationRetry()
				e.logInfo(logging.CategoryRetry, "section_retry", book.ID, n,
					fmt.Sprintf("section %d generation attempt %d", n, attempt+1))
			}
			var genErr error
			text, genErr = e.gen.Generate(ctx, req)
			return genErr
		})
		if err != nil {
			return e.fail(ctx, book, "sections", err), true, err
		}

		body, summary := generation.SplitSummary(text)
		if err := e.store.UpsertSectionContent(book.ID, n, body); err != nil {
			err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "persist section text").
				WithContext("book_id", book.ID).WithContext("section", n)
			return e.fail(ctx, book, "sections", err), true, err
		}
		if err := e.store.UpsertSummary(book.ID, n, summary); err != nil {
			err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "persist section summary").
				WithContext("book_id", book.ID).WithContext("section", n)
			return e.fail(ctx, book, "sections", err), true, err
		}
		if err := e.store.AdvanceSection(book.ID, n, n+1); err != nil {
			err = bferrors.Wrap(err, bferrors.ErrCodeStorageConflict, "advance stage pointer").
				WithContext("book_id", book.ID).WithContext("section", n)
			return e.fail(ctx, book, "sections", err), true, err
		}

		e.logInfo(logging.CategoryWorkflow, "section_generated", book.ID, n,
			fmt.Sprintf("section %d of %d written", n, book.TotalSections))
		e.emit(ctx, book, notify.EventSectionReady, n, func(nm *notify.Manager) error {
			return nm.NotifySectionReady(ctx, book.ID, book.Title, n, book.TotalSections)
		})
	}

	if err := e.store.SetBookStatus(book.ID, storage.BookStatusReadyForReview); err != nil {
		err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "mark ready for review")
		return e.fail(ctx, book, "sections", err), true, err
	}
	e.emit(ctx, book, notify.EventReviewReady, 0, func(n *notify.Manager) error {
		return n.NotifyReviewReady(ctx, book.ID, book.Title)
	})
	return Outcome{}, false, nil
}

// runReviewAndCompile handles FINAL_REVIEW_GATE, COMPILE, DELIVERED.
func (e *run) runReviewAndCompile(ctx context.Context, book *storage.Book) (Outcome, error) {
	status := ParseGateStatus(book.ReviewGate)
	decision := EvaluateGate(status)
	if decision == GatePause {
		outcome := e.block(ctx, book, "review",
			fmt.Sprintf("review gate is %q, waiting for the editor", status))
		return outcome, nil
	}

	var url string
	err := e.retry.do(ctx, func(attempt int) error {
		if attempt > 0 {
			e.logInfo(logging.CategoryRetry, "compile_retry", book.ID, 0,
				fmt.Sprintf("compile attempt %d", attempt+1))
		}
		var compErr error
		url, compErr = e.compiler.Compile(ctx, book.ID)
		return compErr
	})
	if err != nil {
		return e.fail(ctx, book, "compile", err), err
	}

	if err := e.store.SetOutputURL(book.ID, url); err != nil {
		err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "persist output url").WithContext("book_id", book.ID)
		return e.fail(ctx, book, "compile", err), err
	}
	if err := e.store.SetBookStatus(book.ID, storage.BookStatusCompiled); err != nil {
		err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "mark compiled").WithContext("book_id", book.ID)
		return e.fail(ctx, book, "compile", err), err
	}
	if err := e.store.SetBookStatus(book.ID, storage.BookStatusDelivered); err != nil {
		err = bferrors.Wrap(err, bferrors.ErrCodeStorageWrite, "mark delivered").WithContext("book_id", book.ID)
		return e.fail(ctx, book, "compile", err), err
	}

	e.logInfo(logging.CategoryWorkflow, "delivered", book.ID, 0, "book compiled and delivered")
	e.emit(ctx, book, notify.EventDelivered, 0, func(n *notify.Manager) error {
		return n.NotifyDelivered(ctx, book.ID, book.Title, url)
	})
	return Outcome{State: OutcomeDelivered, Stage: "compile", Detail: url}, nil
}

// block marks the book as waiting on the editor and records why. A
// book that is already blocked stays blocked silently, so a polling
// worker revisiting it every cycle does not repeat the notification.
func (e *run) block(ctx context.Context, book *storage.Book, stage, reason string) Outcome {
	if book.Status != storage.BookStatusBlocked {
		if err := e.store.SetBookStatus(book.ID, storage.BookStatusBlocked); err != nil {
			e.logError(book.ID, "persist_blocked_status", err)
		}
		e.emit(ctx, book, notify.EventBlocked, 0, func(n *notify.Manager) error {
			return n.NotifyBlocked(ctx, book.ID, book.Title, reason)
		})
	}
	e.logInfo(logging.CategoryWorkflow, "blocked", book.ID, 0, reason)
	return Outcome{State: OutcomeBlocked, Stage: stage, Detail: reason}
}

// fail records a terminal failure with its cause.
func (e *run) fail(ctx context.Context, book *storage.Book, stage string, cause error) Outcome {
	if err := e.store.SetBookFailure(book.ID, cause.Error()); err != nil {
		e.logError(book.ID, "persist_failed_status", err)
	}
	e.logError(book.ID, "workflow_failed", cause)
	e.emit(ctx, book, notify.EventFailed, 0, func(n *notify.Manager) error {
		return n.NotifyFailed(ctx, book.ID, book.Title, cause)
	})
	return Outcome{State: OutcomeFailed, Stage: stage, Detail: cause.Error()}
}

// emit appends a durable notification event, then fans it out. Fan-out
// failures are logged and swallowed; delivery problems must not stop
// the workflow.
func (e *run) emit(ctx context.Context, book *storage.Book, eventType notify.EventType, section int, send func(*notify.Manager) error) {
	payload, _ := json.Marshal(map[string]any{
		"book_id": book.ID,
		"title":   book.Title,
		"section": section,
	})
	err := e.store.AppendEvent(&storage.NotificationEvent{
		BookID:  book.ID,
		Type:    string(eventType),
		Payload: payload,
	})
	if err != nil {
		e.logError(book.ID, "append_event", err)
	}

	if e.notifier == nil {
		return
	}
	if err := send(e.notifier); err != nil {
		e.logError(book.ID, "notify", err)
	}
}

func (e *run) logInfo(category logging.Category, eventType, bookID string, section int, message string) {
	if e.log == nil {
		return
	}
	_ = e.log.Log(logging.Event{
		Level:     logging.LevelInfo,
		Category:  category,
		EventType: eventType,
		BookID:    bookID,
		Section:   section,
		Message:   message,
	})
}

func (e *run) logError(bookID, eventType string, cause error) {
	if e.log == nil {
		return
	}
	details := map[string]any{"error": cause.Error()}
	var coded *bferrors.Error
	if errors.As(cause, &coded) {
		details["code"] = string(coded.Code)
		details["retryable"] = coded.Retryable
	}
	_ = e.log.Log(logging.Event{
		Level:     logging.LevelError,
		Category:  logging.CategoryWorkflow,
		EventType: eventType,
		BookID:    bookID,
		Message:   strings.TrimSpace(cause.Error()),
		Details:   details,
	})
}
