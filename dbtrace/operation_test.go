package dbtrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	type args struct {
		text string
	}

	tests := []struct {
		name string
		args args
		want Classification
	}{
		{
			name: "given SELECT statement, then returns valid SELECT",
			args: args{text: "SELECT id FROM users"},
			want: Classification{Keyword: "SELECT", Valid: true},
		},
		{
			name: "given lowercase insert, then returns uppercase INSERT",
			args: args{text: "insert into users (id) values (1)"},
			want: Classification{Keyword: "INSERT", Valid: true},
		},
		{
			name: "given leading whitespace and newline, then returns operation",
			args: args{text: "  \n\tUPDATE users SET name = 'x'"},
			want: Classification{Keyword: "UPDATE", Valid: true},
		},
		{
			name: "given single word command, then returns that word",
			args: args{text: "COMMIT"},
			want: Classification{Keyword: "COMMIT", Valid: true},
		},
		{
			name: "given operation followed by tab, then returns operation",
			args: args{text: "DELETE\tFROM users"},
			want: Classification{Keyword: "DELETE", Valid: true},
		},
		{
			name: "given unknown keyword, then keyword is computed but invalid",
			args: args{text: "frobnicate the users"},
			want: Classification{Keyword: "FROBNICATE", Valid: false},
		},
		{
			name: "given parenthesised select, then is invalid",
			args: args{text: "(SELECT 1)"},
			want: Classification{Keyword: "(SELECT", Valid: false},
		},
		{
			name: "given empty string, then returns empty invalid classification",
			args: args{text: ""},
			want: Classification{},
		},
		{
			name: "given whitespace only, then returns empty invalid classification",
			args: args{text: " \t\n "},
			want: Classification{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.args.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassification_Operation(t *testing.T) {
	t.Run("given valid classification, then returns keyword", func(t *testing.T) {
		assert.Equal(t, "SELECT", Classification{Keyword: "SELECT", Valid: true}.Operation())
	})

	t.Run("given invalid classification, then suppresses keyword", func(t *testing.T) {
		assert.Empty(t, Classification{Keyword: "FROBNICATE"}.Operation())
	})
}

func TestClassify_OnlyVocabularyIsValid(t *testing.T) {
	inputs := []string{
		"SELECT 1", "with cte as (select 1) select * from cte", "BEGIN", "rollback",
		"xyzzy", "SELECTED 1", "123", "'SELECT'", "-- comment\nSELECT 1",
	}

	for _, in := range inputs {
		c := Classify(in)
		if c.Valid {
			assert.True(t, IsSQLCommand(c.Keyword), "input %q", in)
			assert.NotEmpty(t, c.Keyword, "input %q", in)
		} else {
			assert.Empty(t, c.Operation(), "input %q", in)
		}
	}
}
