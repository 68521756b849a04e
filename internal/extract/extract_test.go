package extract

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "https link inside prose",
			text: "Payment received. View your receipt at https://receipts.examplebank.com/r/abc123 now.",
			want: "https://receipts.examplebank.com/r/abc123",
			ok:   true,
		},
		{
			name: "first of two links wins",
			text: "see http://a.example/one and http://b.example/two",
			want: "http://a.example/one",
			ok:   true,
		},
		{
			name: "no link",
			text: "You received 500.00 from John.",
			ok:   false,
		},
		{
			name: "empty text",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Link(tt.text)
			if ok != tt.ok {
				t.Fatalf("Link() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Link() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "balance with separators",
			text: "Rs. 500 sent to Jane. Current Balance is Rs. 12,345.67",
			want: "12345.67",
			ok:   true,
		},
		{
			name: "colon variant",
			text: "Current balance: 999",
			want: "999",
			ok:   true,
		},
		{
			name: "phrase absent",
			text: "You sent 500 to Jane.",
			ok:   false,
		},
		{
			name: "phrase without number",
			text: "Current Balance is unavailable",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Balance(tt.text)
			if ok != tt.ok {
				t.Fatalf("Balance() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Balance() = %s, want %s", got, want)
			}
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "thousands separators", raw: "1,234.56", want: "1234.56", ok: true},
		{name: "currency prefix", raw: "Rs. 1,500.00", want: "1500.00", ok: true},
		{name: "plain integer", raw: "42", want: "42", ok: true},
		{name: "not a number", raw: "twelve", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "only separator", raw: ",", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Amount(tt.raw)
			if ok != tt.ok {
				t.Fatalf("Amount(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if !ok {
				return
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Amount(%q) = %s, want %s", tt.raw, got, want)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	const text = "Label: value here\nNext: other"

	tests := []struct {
		name  string
		start string
		end   string
		want  string
		ok    bool
	}{
		{name: "exact trimmed substring", start: "Label:", end: "\n", want: "value here", ok: true},
		{name: "absent start marker", start: "Missing:", end: "\n", ok: false},
		{name: "absent end marker", start: "Next:", end: "\n", ok: false},
		{name: "end before start position ignored", start: "Next:", end: "Label:", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Between(text, tt.start, tt.end)
			if ok != tt.ok {
				t.Fatalf("Between() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Between() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAfter(t *testing.T) {
	got, ok := After("Total: 12.50", "Total:")
	if !ok || got != "12.50" {
		t.Errorf("After() = %q, %v; want %q, true", got, ok, "12.50")
	}

	if _, ok := After("no marker here", "Total:"); ok {
		t.Error("After() should miss when the marker is absent")
	}
}

func TestParty(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		label string
		want  string
		ok    bool
	}{
		{
			name:  "delimited by account label",
			text:  "Payer   John Doe  Account: ****1234\n",
			label: "Payer",
			want:  "John Doe",
			ok:    true,
		},
		{
			name:  "falls back to line break",
			text:  "Receiver   Jane Smith\nPurpose: Rent\n",
			label: "Receiver",
			want:  "Jane Smith",
			ok:    true,
		},
		{
			name:  "falls back to end of text",
			text:  "Receiver   Jane Smith",
			label: "Receiver",
			want:  "Jane Smith",
			ok:    true,
		},
		{
			name:  "label absent",
			text:  "Purpose: Rent\n",
			label: "Payer",
			ok:    false,
		},
		{
			name:  "label not followed by whitespace",
			text:  "PayerX John\n",
			label: "Payer",
			ok:    false,
		},
		{
			name:  "empty value",
			text:  "Payer   \nNext\n",
			label: "Payer",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Party(tt.text, tt.label)
			if ok != tt.ok {
				t.Fatalf("Party() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Party() = %q, want %q", got, tt.want)
			}
		})
	}
}
