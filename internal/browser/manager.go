// Package browser owns the Chrome process lifecycle and exposes the page
// primitives the engine consumes: navigation, querying, clicking, typing,
// select manipulation, uploads, bounded waits, and in-page evaluation.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// Manager launches the browser process lazily and hands out page sessions.
type Manager struct {
	cfg config.BrowserConfig
	log *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session

	initOnce sync.Once
}

// NewManager creates a browser manager. The browser itself is not launched
// until the first session is requested.
func NewManager(cfg config.BrowserConfig, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		log:      log.Named("browser_manager"),
		sessions: make(map[string]*Session),
	}
}

// initialize builds the exec allocator once. Allocator construction cannot
// fail; the browser process itself starts on the first session's probe run.
func (m *Manager) initialize() {
	m.initOnce.Do(func() {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts, chromedp.Flag("headless", m.cfg.Headless))
		if m.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
		}
		if m.cfg.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}

		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		m.log.Info("Browser allocator initialized", zap.Bool("headless", m.cfg.Headless))
	})
}

// NewSession creates a fresh browser tab wrapped in a Session.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	m.initialize()

	sessCtx, sessCancel := chromedp.NewContext(m.allocCtx)

	// Running an empty task forces the browser process to start so session
	// creation fails here rather than on the first real action.
	if err := chromedp.Run(sessCtx); err != nil {
		sessCancel()
		return nil, fmt.Errorf("starting browser session: %w", err)
	}

	s := &Session{
		id:     uuid.NewString(),
		ctx:    sessCtx,
		cancel: sessCancel,
		cfg:    m.cfg,
		log:    m.log.Named("session"),
	}

	// Forms occasionally throw confirm/alert dialogs on submit; an
	// unanswered dialog deadlocks every subsequent CDP command, so accept
	// them as they appear.
	chromedp.ListenTarget(sessCtx, func(ev any) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(sessCtx, page.HandleJavaScriptDialog(true)); err != nil {
					s.log.Warn("Failed to dismiss JavaScript dialog", zap.Error(err))
				}
			}()
		}
	})

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.Debug("Browser session created", zap.String("session_id", s.id))
	return s, nil
}

// CloseSession tears down one session.
func (m *Manager) CloseSession(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
	s.Close()
}

// Shutdown closes every open session and the browser process.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.log.Info("Browser manager shut down", zap.Int("sessions_closed", len(open)))
}
