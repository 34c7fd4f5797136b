package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"mindmeld/internal/service/chat"
	"mindmeld/internal/service/conversation"
	"mindmeld/internal/service/llm"
	"mindmeld/internal/state"
	"mindmeld/pkg/validation"
	"strings"
	"sync/atomic"
	"time"

	"github.com/peterh/liner"
)

const helpText = `Commands:
  /new                  start a new conversation
  /list                 list conversations
  /switch <n|id>        switch to a conversation
  /history              show the current conversation
  /delete [n|id]        delete a conversation (default: current)
  /clear                delete all conversations
  /settings             show model settings
  /set <field> <value>  change a setting (temperature, topP, maxTokens, useHistory)
  /dark [on|off]        toggle or set dark mode
  /help                 show this help
  /quit                 exit
Anything else is sent as a message.`

// Shell is the line-oriented presentation layer. Every user intent is
// forwarded to the state manager or the chat service.
type Shell struct {
	manager       *state.Manager
	chat          *chat.ChatService
	conversations *conversation.ConversationService
	validator     *validation.ChatRequestValidator
	theme         *Theme
	out           io.Writer
	now           func() time.Time

	modelReady  atomic.Bool
	announced   bool
	unsubscribe func()
}

// NewShell creates a shell writing to out
func NewShell(manager *state.Manager, chatService *chat.ChatService, conversations *conversation.ConversationService, theme *Theme, out io.Writer) *Shell {
	s := &Shell{
		manager:       manager,
		chat:          chatService,
		conversations: conversations,
		validator:     validation.NewChatRequestValidator(),
		theme:         theme,
		out:           out,
		now:           time.Now,
	}
	s.modelReady.Store(manager.IsModelLoaded())
	s.announced = s.modelReady.Load()
	s.unsubscribe = manager.Subscribe(func(view state.State) {
		s.modelReady.Store(view.IsModelLoaded)
	})
	return s
}

// Close detaches the shell from the manager
func (s *Shell) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Run reads lines until /quit, EOF, Ctrl+C or ctx is cancelled
func (s *Shell) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	s.printBanner()

	for {
		if ctx.Err() != nil {
			fmt.Fprintln(s.out)
			return nil
		}
		s.announceModel()

		prompt := "mindmeld> "
		if !s.modelReady.Load() {
			prompt = "mindmeld (loading)> "
		}

		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		keepGoing, err := s.Execute(ctx, input)
		if err != nil {
			s.printError(err)
		}
		if !keepGoing {
			return nil
		}
	}
}

// Execute handles one line of input. It returns false when the shell should exit.
func (s *Shell) Execute(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return true, nil
	}

	if strings.HasPrefix(input, "/") {
		return s.handleCommand(input)
	}

	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return false, nil
	}

	return true, s.sendMessage(ctx, input)
}

func (s *Shell) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	logger.Log.WithField("command", cmd).Debug("Handling command")

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil
	case "/help", "/?":
		fmt.Fprintln(s.out, helpText)
	case "/new":
		s.manager.CreateConversation()
		s.printInfo("Started a new conversation")
	case "/list", "/ls":
		s.PrintConversations()
	case "/switch", "/open":
		if len(args) != 1 {
			return true, errors.New("usage: /switch <n|id>")
		}
		conv, err := s.conversations.SwitchConversation(args[0])
		if err != nil {
			return true, err
		}
		s.printInfo(fmt.Sprintf("Switched to %q", conv.Title))
		s.printHistory()
	case "/history":
		s.printHistory()
	case "/delete", "/rm":
		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}
		conv, err := s.conversations.DeleteConversation(ref)
		if err != nil {
			return true, err
		}
		s.printInfo(fmt.Sprintf("Deleted %q", conv.Title))
	case "/clear":
		s.manager.ClearAll()
		s.printInfo("All conversations cleared")
	case "/settings":
		s.printSettings()
	case "/set":
		if len(args) != 2 {
			return true, errors.New("usage: /set <field> <value>")
		}
		patch, err := s.validator.ParseSettingsField(args[0], args[1])
		if err != nil {
			return true, err
		}
		if err := s.chat.UpdateSettings(patch); err != nil {
			return true, err
		}
		s.printSettings()
	case "/dark", "/theme":
		dark, err := parseToggle(args, s.manager.DarkMode())
		if err != nil {
			return true, err
		}
		s.manager.SetDarkMode(dark)
		if dark {
			s.printInfo("Dark mode on")
		} else {
			s.printInfo("Dark mode off")
		}
	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}

	return true, nil
}

func (s *Shell) sendMessage(ctx context.Context, input string) error {
	if s.manager.IsGenerating() {
		return chat.ErrGenerationInProgress
	}
	if !s.manager.IsModelLoaded() {
		return errors.New("the model is still loading, please wait")
	}

	s.printInfo("Thinking...")

	resp, err := s.chat.SendMessage(ctx, input)
	if err != nil {
		if errors.Is(err, llm.ErrModelNotLoaded) {
			return errors.New("the model is still loading, please wait")
		}
		return err
	}

	s.printMessage(resp.Reply)
	return nil
}

// PrintConversations writes the conversation list
func (s *Shell) PrintConversations() {
	st := s.theme.Styles()
	list := s.conversations.GetConversations()
	if len(list) == 0 {
		s.printInfo("No conversations yet")
		return
	}

	for _, c := range list {
		marker := " "
		title := c.Title
		if c.Current {
			marker = "*"
			title = st.Selected.Render(title)
		}
		fmt.Fprintf(s.out, "%s %2d. %s %s\n",
			marker, c.Index, title,
			st.Timestamp.Render(fmt.Sprintf("(%d messages, %s)", c.MessageCount, c.UpdatedAt)))
	}
}

func (s *Shell) printHistory() {
	messages, err := s.conversations.GetConversationMessages()
	if err != nil {
		s.printInfo("No conversation selected")
		return
	}
	if len(messages) == 0 {
		s.printInfo("No messages yet")
		return
	}
	for _, msg := range messages {
		s.printMessage(msg)
	}
}

func (s *Shell) printMessage(msg db.Message) {
	st := s.theme.Styles()

	var who string
	switch msg.Role {
	case db.RoleUser:
		who = st.User.Render("You")
	case db.RoleAssistant:
		who = st.Assistant.Render("MindMeld")
	default:
		who = st.Info.Render(string(msg.Role))
	}

	stamp := st.Timestamp.Render(conversation.FormatMessageTime(msg.Timestamp, s.now()))
	fmt.Fprintf(s.out, "%s %s: %s\n", stamp, who, msg.Content)
}

func (s *Shell) printSettings() {
	st := s.theme.Styles()
	settings := s.manager.Settings()

	fmt.Fprintln(s.out, st.Title.Render("Model settings"))
	fmt.Fprintf(s.out, "  temperature  %.2f\n", settings.Temperature)
	fmt.Fprintf(s.out, "  topP         %.2f\n", settings.TopP)
	fmt.Fprintf(s.out, "  maxTokens    %d\n", settings.MaxTokens)
	fmt.Fprintf(s.out, "  useHistory   %t\n", settings.UseHistory)
}

func (s *Shell) printBanner() {
	st := s.theme.Styles()
	fmt.Fprintln(s.out, st.Title.Render("MindMeld")+" "+st.Info.Render("local chat. Type /help for commands."))
}

// announceModel prints a notice the first time the model is seen loaded
func (s *Shell) announceModel() {
	if !s.announced && s.modelReady.Load() {
		s.announced = true
		s.printInfo("Model loaded, ready to chat")
	}
}

func (s *Shell) printInfo(msg string) {
	fmt.Fprintln(s.out, s.theme.Styles().Info.Render(msg))
}

func (s *Shell) printError(err error) {
	fmt.Fprintln(s.out, s.theme.Styles().Error.Render("[Error]")+" "+err.Error())
}

// parseToggle reads an optional on/off argument, toggling current when absent
func parseToggle(args []string, current bool) (bool, error) {
	if len(args) == 0 {
		return !current, nil
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return current, fmt.Errorf("expected on or off, got %q", args[0])
}
