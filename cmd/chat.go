package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lauruschat/lauruschat/internal/config"
	"github.com/lauruschat/lauruschat/internal/dependency"
)

var (
	chatMessage  string
	chatIdentity string
	chatName     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatIdentity, "identity", "i", "cli:direct", "Conversation identity")
	chatCmd.Flags().StringVarP(&chatName, "name", "n", "", "Display name passed to the assistant")
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
	if cfg.OpenAI.AssistantID == "" {
		return fmt.Errorf("no assistant configured — run `lauruschat assistant create` first")
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	responder := container.Responder()

	if chatMessage != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		fmt.Println(responder.GenerateResponse(ctx, chatMessage, chatIdentity, chatName))
		return nil
	}

	fmt.Println("Chatting with the Laurus assistant. Type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		reply := responder.GenerateResponse(ctx, line, chatIdentity, chatName)
		cancel()
		fmt.Println(reply)
	}
	return scanner.Err()
}
