package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
)

type address struct {
	Zip string `json:"zip" pattern:"^[0-9]{5}$"`
}

type signup struct {
	Username string    `json:"username" minLength:"3" maxLength:"8"`
	Role     string    `json:"role" enum:"admin,member"`
	Age      int       `json:"age" minimum:"18" maximum:"130"`
	Score    float64   `json:"score" maximum:"1.5"`
	Tags     []string  `json:"tags" minItems:"1" maxItems:"2"`
	Address  address   `json:"address"`
	Backup   *address  `json:"backup,omitempty"`
	Nick     *string   `json:"nick" minLength:"2"`
	Ignored  string    `json:"-" minLength:"100"`
	Limit    int       `query:"limit" maximum:"10"`
	Untagged string    `maxLength:"1"`
	Nested   []address `json:"nested"`
}

func validSignup() signup {
	return signup{
		Username: "alice",
		Role:     "admin",
		Age:      30,
		Score:    1,
		Tags:     []string{"a"},
		Address:  address{Zip: "12345"},
	}
}

func TestValidateConstraints(t *testing.T) {
	t.Parallel()

	short := "x"

	tests := map[string]struct {
		mutate    func(s *signup)
		wantField string
	}{
		"valid": {
			mutate: func(*signup) {},
		},
		"min length": {
			mutate:    func(s *signup) { s.Username = "al" },
			wantField: "username",
		},
		"max length": {
			mutate:    func(s *signup) { s.Username = "alexandria" },
			wantField: "username",
		},
		"enum": {
			mutate:    func(s *signup) { s.Role = "owner" },
			wantField: "role",
		},
		"minimum": {
			mutate:    func(s *signup) { s.Age = 12 },
			wantField: "age",
		},
		"maximum float": {
			mutate:    func(s *signup) { s.Score = 2 },
			wantField: "score",
		},
		"min items": {
			mutate:    func(s *signup) { s.Tags = nil },
			wantField: "tags",
		},
		"max items": {
			mutate:    func(s *signup) { s.Tags = []string{"a", "b", "c"} },
			wantField: "tags",
		},
		"nested pattern": {
			mutate:    func(s *signup) { s.Address.Zip = "abc" },
			wantField: "address.zip",
		},
		"nested pointer": {
			mutate:    func(s *signup) { s.Backup = &address{Zip: "1"} },
			wantField: "backup.zip",
		},
		"pointer field": {
			mutate:    func(s *signup) { s.Nick = &short },
			wantField: "nick",
		},
		"param tag name": {
			mutate:    func(s *signup) { s.Limit = 11 },
			wantField: "limit",
		},
		"field name without tag": {
			mutate:    func(s *signup) { s.Untagged = "ab" },
			wantField: "Untagged",
		},
		"ignored field": {
			mutate: func(s *signup) { s.Ignored = "short" },
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := validSignup()
			tc.mutate(&s)
			err := bridge.ValidateConstraints(&s)

			if tc.wantField == "" {
				require.NoError(t, err)
				return
			}

			var pd *bridge.ProblemDetail
			require.ErrorAs(t, err, &pd)
			assert.Equal(t, 400, pd.Status)
			require.Len(t, pd.Errors, 1)
			assert.Equal(t, tc.wantField, pd.Errors[0].Field)
		})
	}
}

func TestValidateConstraints_nonStruct(t *testing.T) {
	t.Parallel()

	assert.NoError(t, bridge.ValidateConstraints(42))
	assert.NoError(t, bridge.ValidateConstraints((*signup)(nil)))
}

func TestValidateConstraints_collectsAll(t *testing.T) {
	t.Parallel()

	s := validSignup()
	s.Username = ""
	s.Age = 0
	s.Tags = nil

	var pd *bridge.ProblemDetail
	require.ErrorAs(t, bridge.ValidateConstraints(s), &pd)
	assert.Len(t, pd.Errors, 3)
	assert.Equal(t, "3 constraint violation(s)", pd.Detail)
}
