package state

import (
	"context"
	"fmt"
	"mindmeld/internal/idgen"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"sync"
	"time"

	clone "github.com/huandu/go-clone"
	"github.com/sirupsen/logrus"
)

// ThemeApplier switches the global appearance of the presentation layer
type ThemeApplier interface {
	ApplyTheme(dark bool)
}

// ThemeFunc adapts a function to ThemeApplier
type ThemeFunc func(dark bool)

// ApplyTheme calls f(dark)
func (f ThemeFunc) ApplyTheme(dark bool) { f(dark) }

// Observer is called with a copy of the state after every mutation.
// Observers may query the Manager but must not mutate it.
type Observer func(State)

// Manager is the conversation state manager. It is safe for concurrent use;
// each mutation is atomic with respect to the others. Observers and the theme
// hook never see views older than one they were already given.
type Manager struct {
	mu    sync.Mutex
	state State
	seq   uint64

	newID     func() string
	now       func() time.Time
	theme     ThemeApplier
	persister *persister

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	// publishMu orders delivery to observers and the theme hook
	publishMu  sync.Mutex
	published  uint64
	latestDark bool
	themeSet   bool
	themeDark  bool
}

// Option configures a Manager
type Option func(*Manager)

// WithStore persists conversations, settings and dark mode to store,
// coalescing writes that happen within delay of each other
func WithStore(store db.Store, delay time.Duration) Option {
	return func(m *Manager) {
		m.persister = newPersister(store, delay)
	}
}

// WithIDGenerator replaces idgen.Generate
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTheme sets the appearance hook driven by SetDarkMode
func WithTheme(theme ThemeApplier) Option {
	return func(m *Manager) { m.theme = theme }
}

// WithPrefersDark sets the first-run dark mode default
func WithPrefersDark(dark bool) Option {
	return func(m *Manager) { m.state.DarkMode = dark }
}

// NewManager creates a Manager holding the first-run state
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		state:     initialState(false),
		newID:     idgen.Generate,
		now:       time.Now,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate loads the persisted snapshot once at startup and merges it over
// the defaults, then applies the resulting theme. A failing store leaves the
// defaults in place and is reported to the caller.
func (m *Manager) Hydrate(ctx context.Context) error {
	var loadErr error
	var snap *db.Snapshot
	if m.persister != nil {
		loaded, err := m.persister.store.Load(ctx)
		if err != nil {
			loadErr = fmt.Errorf("failed to load state: %w", err)
		} else {
			snap = loaded
		}
	}

	m.commit(false, true, func(s *State) {
		if snap == nil {
			return
		}
		s.merge(snap)
		logger.Log.WithField("conversations", len(s.Conversations)).Info("Restored state")
	})
	return loadErr
}

// Flush writes any pending snapshot immediately
func (m *Manager) Flush(ctx context.Context) error {
	if m.persister == nil {
		return nil
	}
	return m.persister.flush(ctx)
}

// Close flushes pending writes; the Manager stays usable in memory
func (m *Manager) Close(ctx context.Context) error {
	return m.Flush(ctx)
}

// Subscribe registers fn for state changes and returns a function removing it
func (m *Manager) Subscribe(fn Observer) func() {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.observers, id)
	}
}

// mutate runs fn under the lock, persists if asked and notifies observers
func (m *Manager) mutate(persist bool, fn func(s *State)) {
	m.commit(persist, false, fn)
}

// commit applies fn, stamps the result with a sequence number and queues
// the snapshot in commit order, then publishes the view. applyTheme forces
// the theme hook to be called with the committed dark mode.
func (m *Manager) commit(persist, applyTheme bool, fn func(s *State)) {
	m.mu.Lock()
	fn(&m.state)
	if persist && m.persister != nil {
		m.persister.schedule(m.state.snapshot())
	}
	m.seq++
	seq := m.seq
	view := m.state.clone()
	m.mu.Unlock()

	m.publish(seq, view, applyTheme)
}

// publish hands view to the theme hook and observers unless a newer view
// was already published. A dropped view still honours a theme request,
// using the dark mode of the newest published view.
func (m *Manager) publish(seq uint64, view State, applyTheme bool) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	fresh := seq > m.published
	if fresh {
		m.published = seq
		m.latestDark = view.DarkMode
	}

	if m.theme != nil && (applyTheme || (m.themeSet && m.themeDark != m.latestDark)) {
		m.theme.ApplyTheme(m.latestDark)
		m.themeSet = true
		m.themeDark = m.latestDark
	}

	if !fresh {
		return
	}

	m.obsMu.Lock()
	observers := make([]Observer, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.obsMu.Unlock()

	for _, fn := range observers {
		fn(view)
	}
}

// createLocked prepends a new empty conversation and selects it
func (m *Manager) createLocked(s *State) string {
	now := m.now()
	conv := db.Conversation{
		ID:        m.newID(),
		Title:     DefaultTitle,
		Messages:  []db.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Conversations = append([]db.Conversation{conv}, s.Conversations...)
	s.CurrentConversationID = conv.ID

	logger.Log.WithField("conversation_id", conv.ID).Debug("Created conversation")
	return conv.ID
}

// CreateConversation adds an empty conversation at the head of the list,
// selects it and returns its id
func (m *Manager) CreateConversation() string {
	var id string
	m.mutate(true, func(s *State) {
		id = m.createLocked(s)
	})
	return id
}

// SelectConversation sets the current selection without checking that id
// exists. A dangling selection reads as "no conversation" through
// CurrentConversation.
func (m *Manager) SelectConversation(id string) {
	m.mutate(false, func(s *State) {
		s.CurrentConversationID = id
	})
}

// AppendMessage appends a message to the current conversation, creating and
// selecting a conversation first when none is selected (or the selection is
// dangling). The first user message of a conversation becomes its title.
// It returns the message and the id of the conversation it was added to.
func (m *Manager) AppendMessage(role db.Role, content string) (db.Message, string) {
	var msg db.Message
	var conversationID string
	m.mutate(true, func(s *State) {
		idx := s.indexOf(s.CurrentConversationID)
		if idx < 0 {
			m.createLocked(s)
			idx = 0
		}

		now := m.now()
		msg = db.Message{
			ID:        m.newID(),
			Role:      role,
			Content:   content,
			Timestamp: now,
		}

		conv := &s.Conversations[idx]
		if len(conv.Messages) == 0 && role == db.RoleUser {
			conv.Title = makeTitle(content)
		}
		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = now
		conversationID = conv.ID

		logger.Log.WithFields(logrus.Fields{
			"conversation_id": conv.ID,
			"message_id":      msg.ID,
			"role":            role,
		}).Debug("Appended message")
	})
	return msg, conversationID
}

// DeleteConversation removes the conversation with id, if present. Deleting
// the current conversation selects the new head of the list, or nothing.
func (m *Manager) DeleteConversation(id string) {
	m.mutate(true, func(s *State) {
		idx := s.indexOf(id)
		if idx >= 0 {
			s.Conversations = append(s.Conversations[:idx:idx], s.Conversations[idx+1:]...)
		}

		if id != "" && s.CurrentConversationID == id {
			s.CurrentConversationID = ""
			if len(s.Conversations) > 0 {
				s.CurrentConversationID = s.Conversations[0].ID
			}
		}

		logger.Log.WithFields(logrus.Fields{
			"conversation_id": id,
			"found":           idx >= 0,
		}).Debug("Deleted conversation")
	})
}

// ClearAll removes every conversation and clears the selection
func (m *Manager) ClearAll() {
	m.mutate(true, func(s *State) {
		s.Conversations = []db.Conversation{}
		s.CurrentConversationID = ""
	})
}

// UpdateSettings merges patch over the current settings. Values are not clamped.
func (m *Manager) UpdateSettings(patch db.SettingsPatch) {
	m.mutate(true, func(s *State) {
		s.ModelSettings = patch.Apply(s.ModelSettings)
	})
}

// SetModelLoaded sets the transient model-loaded flag
func (m *Manager) SetModelLoaded(loaded bool) {
	m.mutate(false, func(s *State) {
		s.IsModelLoaded = loaded
	})
}

// SetGenerating sets the transient generating flag
func (m *Manager) SetGenerating(generating bool) {
	m.mutate(false, func(s *State) {
		s.IsGenerating = generating
	})
}

// BeginGeneration sets the generating flag if it is clear and reports
// whether it did. It lets a caller claim the single generation slot.
func (m *Manager) BeginGeneration() bool {
	claimed := false
	m.mutate(false, func(s *State) {
		if !s.IsGenerating {
			s.IsGenerating = true
			claimed = true
		}
	})
	return claimed
}

// SetDarkMode persists the appearance flag and applies it to the theme hook
func (m *Manager) SetDarkMode(dark bool) {
	m.commit(true, true, func(s *State) {
		s.DarkMode = dark
	})
}

// State returns a copy of the whole state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Conversations returns a copy of the conversations, newest first
func (m *Manager) Conversations() []db.Conversation {
	return m.State().Conversations
}

// Conversation returns a copy of the conversation with id
func (m *Manager) Conversation(id string) (db.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.state.indexOf(id)
	if idx < 0 {
		return db.Conversation{}, false
	}
	return clone.Clone(m.state.Conversations[idx]).(db.Conversation), true
}

// CurrentConversation returns the selected conversation. It reports false
// when nothing is selected or the selection no longer exists.
func (m *Manager) CurrentConversation() (db.Conversation, bool) {
	m.mu.Lock()
	id := m.state.CurrentConversationID
	m.mu.Unlock()

	if id == "" {
		return db.Conversation{}, false
	}
	return m.Conversation(id)
}

// CurrentConversationID returns the raw selection, which may be dangling
func (m *Manager) CurrentConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CurrentConversationID
}

// Settings returns the current model settings
func (m *Manager) Settings() db.ModelSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ModelSettings
}

// IsGenerating reports whether a response is being generated
func (m *Manager) IsGenerating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.IsGenerating
}

// IsModelLoaded reports whether the response provider is ready
func (m *Manager) IsModelLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.IsModelLoaded
}

// DarkMode reports the appearance flag
func (m *Manager) DarkMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DarkMode
}
