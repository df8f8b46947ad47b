package search

import (
	"fmt"
	"strings"
)

// Preset is a named, canned natural-language query.
type Preset struct {
	Name  string
	Label string
	Query string
}

// Presets lists the canned queries in display order.
var Presets = []Preset{
	{Name: "zelle", Label: "Zelle / payment app scams", Query: "unauthorized zelle or payment app transfers and how the bank resolved them"},
	{Name: "ach", Label: "ACH errors and reversals", Query: "ach errors, returned or reversed electronic transfers and error resolution"},
	{Name: "account_takeover", Label: "Account takeover", Query: "account takeover through compromised credentials or sim swap and unauthorized access"},
	{Name: "crypto", Label: "Crypto asset fraud", Query: "crypto asset scams, bitcoin or stablecoin fraud and losses on crypto platforms"},
	{Name: "pig_butchering", Label: "Pig butchering", Query: "pig butchering investment scams that build trust before stealing crypto deposits"},
	{Name: "elder_abuse", Label: "Elder financial abuse", Query: "financial exploitation of older adults and elder fraud by caregivers or scammers"},
	{Name: "identity_theft", Label: "Identity theft", Query: "identity theft on credit cards or bank accounts and how it was resolved"},
	{Name: "debt_collection", Label: "Debt collection harassment", Query: "aggressive or illegal debt collection tactics and consumer protections"},
	{Name: "mortgage", Label: "Mortgage & home lending", Query: "mortgage servicing errors, foreclosure, escrow problems, misleading home loans"},
	{Name: "student_loan", Label: "Student loan servicing", Query: "student loan servicing issues, misapplied payments, and forgiveness confusion"},
	{Name: "fcra", Label: "Credit reporting errors (FCRA)", Query: "credit report errors, disputes under fcra, and correction outcomes"},
	{Name: "remittance", Label: "Remittances / international transfers", Query: "remittance transfer problems, high fees, or lost international payments"},
	{Name: "udap", Label: "UDAP / deceptive practices", Query: "unfair, deceptive, or abusive acts and practices in banking or lending"},
}

// LookupPreset finds a preset by name, ignoring case.
func LookupPreset(name string) (Preset, error) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// PresetNames returns the preset names in display order.
func PresetNames() []string {
	names := make([]string, len(Presets))
	for i, p := range Presets {
		names[i] = p.Name
	}
	return names
}
