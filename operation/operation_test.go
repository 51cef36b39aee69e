package operation

import (
	"testing"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandShapes(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"cd", ChangeDirectory{Dir: "/srv/app"}, "cd /srv/app"},
		{"rm entry", RemoveEntry{Entry: "node_modules"}, "sudo rm -rf node_modules"},
		{"extract", ExtractArchive{Archive: "source.tar.gz", Dir: "/srv/app"}, "sudo tar -xzf source.tar.gz -C /srv/app"},
		{"chown", FixOwnership{User: "deploy", Dir: "/srv/app"}, "sudo chown -R deploy /srv/app"},
		{"chown with group", FixOwnership{User: "deploy:www-data", Dir: "/srv/app"}, "sudo chown -R deploy:www-data /srv/app"},
		{"rm archive", RemoveArchive{Archive: "source.tar.gz"}, "sudo rm source.tar.gz"},
		{"quoted space", RemoveEntry{Entry: "my file.txt"}, "sudo rm -rf 'my file.txt'"},
		{"leading dash", RemoveEntry{Entry: "-rf"}, "sudo rm -rf ./-rf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Command()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandRejectsUnsafeArguments(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"empty dir", ChangeDirectory{}},
		{"newline dir", ChangeDirectory{Dir: "/srv\nrm -rf /"}},
		{"dot entry", RemoveEntry{Entry: "."}},
		{"dotdot entry", RemoveEntry{Entry: ".."}},
		{"nested entry", RemoveEntry{Entry: "a/b"}},
		{"absolute entry", RemoveEntry{Entry: "/etc"}},
		{"nul archive", RemoveArchive{Archive: "a\x00b"}},
		{"empty extract dir", ExtractArchive{Archive: "a.tgz"}},
		{"user injection", FixOwnership{User: "root; reboot", Dir: "/srv"}},
		{"empty user", FixOwnership{Dir: "/srv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Command()
			assert.Error(t, err)
			assert.Contains(t, Render(tt.op), "<"+tt.op.Name())
		})
	}
}

// Whatever the argument, the shell must see it as exactly one word with the
// original value.
func TestQuoteRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		"/srv/my app",
		"it's",
		"$(reboot)",
		"`id`",
		"a;b&&c|d",
		"*.log",
		"~user",
		"tab\there",
		"'",
		"\"quoted\"",
		"back\\slash",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			words, err := shlex.Split("cmd " + Quote(in))
			require.NoError(t, err)
			require.Len(t, words, 2)
			assert.Equal(t, in, words[1])
		})
	}
}

func TestQuoteLeavesSafeWordsBare(t *testing.T) {
	for _, in := range []string{"/srv/app", "source.tar.gz", "deploy@host:1", "a_b-c+d=e,f%"} {
		assert.Equal(t, in, Quote(in))
	}
}
