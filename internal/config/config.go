// Package config loads and saves the three JSON documents a node process
// persists between runs: its own consensus state, the bootstrap peer list
// it dials on startup, and the address book the API surface serves.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// NodeStatePath is where a node's full consensus state is persisted.
const NodeStatePath = "configs/node.json"

// BootstrapPath lists the peer addresses a regular node dials at startup.
const BootstrapPath = "configs/Bootstrap.json"

// AddressBookPath maps human-chosen names to addresses for the API's
// address book endpoint.
const AddressBookPath = "configs/AddressBook.json"

// LoadBootstrap reads the list of peer addresses a node should dial at
// startup. A missing file is not an error — a lone or bootstrap node simply
// has nothing to dial.
func LoadBootstrap(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bootstrap list: %w", err)
	}
	var addrs []string
	if err := json.Unmarshal(data, &addrs); err != nil {
		return nil, fmt.Errorf("decode bootstrap list: %w", err)
	}
	return addrs, nil
}

// AddressBook maps a human-chosen name to the Base58 address it resolves
// to, loaded from and saved to AddressBookPath.
type AddressBook map[string]string

// LoadAddressBook reads the address book, returning an empty one if the
// file does not yet exist.
func LoadAddressBook(path string) (AddressBook, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return AddressBook{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read address book: %w", err)
	}
	var book AddressBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("decode address book: %w", err)
	}
	return book, nil
}

// Store persists the address book as pretty-printed JSON.
func (b AddressBook) Store(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode address book: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write address book: %w", err)
	}
	return nil
}
