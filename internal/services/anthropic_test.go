package services

import (
	"testing"

	"github.com/jwebster45206/campaign-engine/pkg/chat"
)

func TestSplitChatMessages(t *testing.T) {
	svc := NewAnthropicService("test-key", "test-model", nil)

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "instruction block"},
		{Role: chat.ChatRoleUser, Content: "I open the door"},
		{Role: chat.ChatRoleAgent, Content: "It creaks."},
		{Role: chat.ChatRoleSystem, Content: "second instruction"},
	}

	system, conversation := svc.splitChatMessages(messages)

	if system != "instruction block\n\nsecond instruction" {
		t.Errorf("unexpected system prompt: %q", system)
	}
	if len(conversation) != 2 {
		t.Fatalf("expected 2 conversation messages, got %d", len(conversation))
	}
	if conversation[0].Role != chat.ChatRoleUser || conversation[1].Role != chat.ChatRoleAgent {
		t.Errorf("conversation order broken: %+v", conversation)
	}
}

func TestSplitChatMessagesNoSystem(t *testing.T) {
	svc := NewAnthropicService("test-key", "test-model", nil)

	system, conversation := svc.splitChatMessages([]chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "hello"},
	})

	if system != "" {
		t.Errorf("expected empty system prompt, got %q", system)
	}
	if len(conversation) != 1 {
		t.Errorf("expected 1 message, got %d", len(conversation))
	}
}
