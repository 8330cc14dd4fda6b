// Package models defines the domain types shared by the API and MCP layers.
package models

import "time"

// Replacement is one distinct term substituted during the session.
type Replacement struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// DictionaryEntry is a single term mapping in dictionary order.
type DictionaryEntry struct {
	Term        string `json:"term"`
	Replacement string `json:"replacement"`
}

// Tooltip describes the disclosure element attached to an element.
type Tooltip struct {
	Owner   string  `json:"owner"`
	Text    string  `json:"text"`
	Visible bool    `json:"visible"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
}

// ScanSummary is published after every substitution pass.
type ScanSummary struct {
	Trigger      string        `json:"trigger"`
	Candidates   int           `json:"candidates"`
	Modified     int           `json:"modified"`
	Replacements int           `json:"replacements"`
	NewRecords   []Replacement `json:"new_records,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	At           time.Time     `json:"at"`
}

// Status reports the session state.
type Status struct {
	SessionID      string    `json:"session_id"`
	Enabled        bool      `json:"enabled"`
	Reason         string    `json:"reason,omitempty"`
	DictionarySize int       `json:"dictionary_size"`
	Scans          int       `json:"scans"`
	Scheduler      string    `json:"scheduler"`
	LastRun        time.Time `json:"last_run,omitzero"`
	Tooltips       int       `json:"tooltips"`
	Replacements   int       `json:"replacements"`
}
