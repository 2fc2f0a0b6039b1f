package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/dependency"
	"github.com/Codesait/clawbot-telegram/internal/orchestrator"
)

var (
	chatMessage string
	chatID      string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot from the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatID, "chat", "c", "direct", "Chat ID (history key)")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	if chatMessage != "" {
		return runSingleMessage(container.Loop())
	}
	return runInteractive(container.Loop(), container.MessageBus())
}

// runSingleMessage sends one message and prints the response.
func runSingleMessage(loop *orchestrator.Loop) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	printResponse(loop.ProcessDirect(ctx, bus.ChannelCLI, chatID, chatMessage))
	return nil
}

// runInteractive starts the REPL loop: reads lines from stdin, sends each
// through the bus, and waits for each reply before prompting again.
func runInteractive(loop *orchestrator.Loop, msgBus bus.Bus) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenForSignals(cancel)

	go func() { _ = loop.Run(ctx) }()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		sendAndWait(ctx, msgBus, line)
	}
}

// listenForSignals cancels ctx on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()
}

// sendAndWait pushes a message onto the inbound bus and blocks until the
// reply is published (or ctx is cancelled).
func sendAndWait(ctx context.Context, msgBus bus.Bus, content string) {
	msgBus.PublishInbound(bus.NewInboundMessage(bus.ChannelCLI, "user", chatID, content))

	select {
	case msg := <-msgBus.OutboundChan():
		if msg.Content() != "" {
			printResponse(msg.Content())
		}
	case <-ctx.Done():
	}
}

func printResponse(text string) {
	fmt.Printf("\n%s clawbot\n%s\n\n", logo, text)
}
