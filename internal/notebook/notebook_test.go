package notebook

import (
	"testing"
	"time"
)

func TestNewNotebookDefaults(t *testing.T) {
	t.Parallel()

	nb := New("Biology 101")
	if nb.ID == "" {
		t.Fatal("expected generated id")
	}
	if nb.Name != "Biology 101" {
		t.Fatalf("unexpected name: %s", nb.Name)
	}
	if nb.Notes != "" {
		t.Fatalf("expected empty notes, got %q", nb.Notes)
	}
	if len(nb.ChatHistory) != 0 {
		t.Fatalf("expected empty chat history, got %d entries", len(nb.ChatHistory))
	}
	if !nb.CreatedAt.Equal(nb.UpdatedAt) {
		t.Fatalf("expected createdAt == updatedAt, got %v / %v", nb.CreatedAt, nb.UpdatedAt)
	}
}

func TestNewNotebookFallsBackToUntitled(t *testing.T) {
	t.Parallel()

	if got := New("").Name; got != "Untitled Notebook" {
		t.Fatalf("unexpected default name: %s", got)
	}
}

func TestMutatorsRefreshUpdatedAt(t *testing.T) {
	t.Parallel()

	nb := New("History")
	before := nb.UpdatedAt
	time.Sleep(time.Millisecond)

	nb.SetNotes("# Outline")
	if !nb.UpdatedAt.After(before) {
		t.Fatal("SetNotes should refresh updatedAt")
	}

	before = nb.UpdatedAt
	time.Sleep(time.Millisecond)
	nb.AppendMessage(NewMessage(RoleUser, "hello"))
	if !nb.UpdatedAt.After(before) {
		t.Fatal("AppendMessage should refresh updatedAt")
	}
	if len(nb.ChatHistory) != 1 {
		t.Fatalf("expected 1 message, got %d", len(nb.ChatHistory))
	}

	before = nb.UpdatedAt
	time.Sleep(time.Millisecond)
	nb.ClearChat()
	if !nb.UpdatedAt.After(before) {
		t.Fatal("ClearChat should refresh updatedAt")
	}
	if len(nb.ChatHistory) != 0 {
		t.Fatal("expected chat history to be emptied")
	}

	if nb.UpdatedAt.Before(nb.CreatedAt) {
		t.Fatal("updatedAt must never precede createdAt")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	nb := New("Chemistry")
	nb.AppendMessage(NewMessage(RoleUser, "what is a mole?"))

	clone := nb.Clone()
	nb.AppendMessage(NewMessage(RoleAssistant, "an amount of substance"))

	if len(clone.ChatHistory) != 1 {
		t.Fatalf("clone should not see later appends, got %d entries", len(clone.ChatHistory))
	}
}
