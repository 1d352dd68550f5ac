// Package roomid derives the canonical identifier of a two-party conversation.
//
// The same function runs on the server and in pkg/chatclient, so both parties of a
// conversation always compute the same room for any ordering of the pair.
package roomid

import (
	"errors"
	"sort"
	"strings"
)

// Separator joins the two sorted identities. Identities must not contain it.
const Separator = "-"

var (
	ErrMissingIdentity = errors.New("both participant identities are required")
	ErrInvalidIdentity = errors.New("participant identity must not contain the room separator")
)

// Derive returns the sorted, Separator-joined pair of identities.
func Derive(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrMissingIdentity
	}
	if strings.Contains(a, Separator) || strings.Contains(b, Separator) {
		return "", ErrInvalidIdentity
	}

	pair := []string{a, b}
	sort.Strings(pair)

	return strings.Join(pair, Separator), nil
}

// MustDerive is Derive for identities already known to be valid.
func MustDerive(a, b string) string {
	id, err := Derive(a, b)
	if err != nil {
		panic(err)
	}

	return id
}

// Participants splits a two-party room id back into its identities.
func Participants(roomID string) (string, string, bool) {
	parts := strings.Split(roomID, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// Includes reports whether identity is one of the two participants of roomID.
func Includes(roomID, identity string) bool {
	a, b, ok := Participants(roomID)
	if !ok || identity == "" {
		return false
	}

	return identity == a || identity == b
}

// Peer returns the participant of roomID other than identity. In a room with
// oneself the peer is identity.
func Peer(roomID, identity string) (string, bool) {
	a, b, ok := Participants(roomID)
	switch {
	case !ok || identity == "":
		return "", false
	case identity == a:
		return b, true
	case identity == b:
		return a, true
	}

	return "", false
}
