package application

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bnema/chatlink/internal/ports"
)

// FragmentSize is the largest value, in runes, stored under one key.
const FragmentSize = 2048

const fragmentSeparator = "#"

// fragmentEntries splits value into store entries. Values that fit are
// stored under id; larger ones under id#0, id#1, ... Fragments are cut on
// byte offsets, so bytes that are not valid UTF-8 are kept as they are and
// count as one unit each.
func fragmentEntries(id, value string) []ports.StoredEntry {
	if utf8.RuneCountInString(value) <= FragmentSize {
		return []ports.StoredEntry{{Key: id, Value: value}}
	}

	var entries []ports.StoredEntry
	for n := 0; value != ""; n++ {
		end := fragmentEnd(value, FragmentSize)
		entries = append(entries, ports.StoredEntry{
			Key:   fragmentKey(id, n),
			Value: value[:end],
		})
		value = value[end:]
	}
	return entries
}

// fragmentEnd returns the byte offset just past the first limit decoded
// units of value.
func fragmentEnd(value string, limit int) int {
	offset := 0
	for units := 0; units < limit && offset < len(value); units++ {
		_, size := utf8.DecodeRuneInString(value[offset:])
		offset += size
	}
	return offset
}

func fragmentKey(id string, n int) string {
	return id + fragmentSeparator + strconv.Itoa(n)
}

// splitFragmentKey returns the id and fragment number of key. Keys without
// a numeric suffix are fragment 0.
func splitFragmentKey(key string) (string, int) {
	idx := strings.LastIndex(key, fragmentSeparator)
	if idx <= 0 {
		return key, 0
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n < 0 {
		return key, 0
	}
	return key[:idx], n
}

type storedMessage struct {
	ID      string
	Payload string
}

// reassemble groups entries by id in order of first appearance. Fragments
// are joined from 0 up to the first gap. Ids with no first fragment are
// returned as stale.
func reassemble(entries []ports.StoredEntry) ([]storedMessage, []string) {
	order := make([]string, 0, len(entries))
	parts := map[string]map[int]string{}

	for _, entry := range entries {
		id, n := splitFragmentKey(entry.Key)
		if _, ok := parts[id]; !ok {
			parts[id] = map[int]string{}
			order = append(order, id)
		}
		parts[id][n] = entry.Value
	}

	messages := make([]storedMessage, 0, len(order))
	var stale []string
	for _, id := range order {
		if _, ok := parts[id][0]; !ok {
			stale = append(stale, id)
			continue
		}

		var b strings.Builder
		for n := 0; ; n++ {
			part, ok := parts[id][n]
			if !ok {
				break
			}
			b.WriteString(part)
		}
		messages = append(messages, storedMessage{ID: id, Payload: b.String()})
	}
	return messages, stale
}
