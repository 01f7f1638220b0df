package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lauruschat/lauruschat/internal/config"
	"github.com/lauruschat/lauruschat/internal/dependency"
)

const (
	assistantName = "Laurus Education Customer Service Assistant"

	assistantInstructions = "You're a helpful customer service agent for Laurus Education, " +
		"a provider of high quality education programs to Australian and international students. " +
		"Laurus provide a variety of educational programs in areas such as English language, Hospitality, " +
		"Aged Care, Automotive, Business, and Construction. " +
		"You will be answering enquiries from prospective and existing students. " +
		"If you don't know the answer, say simply that you cannot help with question and advice to contact " +
		"a human customer service representative directly. Be friendly and funny."
)

var assistantModel string

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage the remote assistant",
}

var assistantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the remote assistant and store its ID in the config",
	RunE:  runAssistantCreate,
}

func init() {
	assistantCreateCmd.Flags().StringVarP(&assistantModel, "model", "m", "gpt-4o", "Model for the assistant")
	assistantCmd.AddCommand(assistantCreateCmd)
}

func runAssistantCreate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("no OpenAI API key configured — edit %s", config.ConfigPath())
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := container.OpenAI().CreateAssistant(
		ctx,
		assistantName,
		assistantInstructions,
		assistantModel,
		container.ToolRegistry().Definitions(),
	)
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}

	cfg.OpenAI.AssistantID = created.ID
	if err := config.Save(cfg, config.ConfigPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Assistant created with id: %s\n", created.ID)
	return nil
}
