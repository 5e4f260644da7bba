package config

import (
	"path/filepath"
	"testing"
)

func TestLoadBootstrapMissingFileReturnsEmpty(t *testing.T) {
	addrs, err := LoadBootstrap(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadBootstrap: %v", err)
	}
	if len(addrs) != 0 {
		t.Fatalf("expected no addresses, got %v", addrs)
	}
}

func TestAddressBookRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AddressBook.json")

	book := AddressBook{"alice": "abc123", "bob": "def456"}
	if err := book.Store(path); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, err := LoadAddressBook(path)
	if err != nil {
		t.Fatalf("LoadAddressBook: %v", err)
	}
	if loaded["alice"] != "abc123" || loaded["bob"] != "def456" {
		t.Fatalf("unexpected loaded book: %v", loaded)
	}
}

func TestLoadAddressBookMissingFileReturnsEmpty(t *testing.T) {
	book, err := LoadAddressBook(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadAddressBook: %v", err)
	}
	if len(book) != 0 {
		t.Fatalf("expected empty book, got %v", book)
	}
}
