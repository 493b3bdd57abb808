package main

import (
	"reflect"
	"testing"
)

func TestRewriteRecordLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"trackflow"},
			want: []string{"trackflow"},
		},
		{
			name: "lead ref first token",
			in:   []string{"trackflow", "lead:12"},
			want: []string{"trackflow", "leads", "show", "12"},
		},
		{
			name: "order ref keeps trailing flags",
			in:   []string{"trackflow", "order:7", "--format", "table"},
			want: []string{"trackflow", "orders", "show", "7", "--format", "table"},
		},
		{
			name: "ref after value flag",
			in:   []string{"trackflow", "--api-url", "http://localhost:8000", "lead:3"},
			want: []string{"trackflow", "--api-url", "http://localhost:8000", "leads", "show", "3"},
		},
		{
			name: "ref after equals flag",
			in:   []string{"trackflow", "--format=table", "Lead:3"},
			want: []string{"trackflow", "--format=table", "leads", "show", "3"},
		},
		{
			name: "ref after bool flag",
			in:   []string{"trackflow", "--pretty", "order:9"},
			want: []string{"trackflow", "--pretty", "orders", "show", "9"},
		},
		{
			name: "ref after double dash",
			in:   []string{"trackflow", "--", "lead:1"},
			want: []string{"trackflow", "--", "leads", "show", "1"},
		},
		{
			name: "missing id not rewritten",
			in:   []string{"trackflow", "lead:"},
			want: []string{"trackflow", "lead:"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"trackflow", "leads", "show", "12"},
			want: []string{"trackflow", "leads", "show", "12"},
		},
		{
			name: "unknown kind not rewritten",
			in:   []string{"trackflow", "invoice:4"},
			want: []string{"trackflow", "invoice:4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteRecordLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteRecordLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
