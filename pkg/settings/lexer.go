package settings

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// textLexer tokenizes the settings file format: one "key: value" pair per
// line with "#" comments. Newlines are significant.
var textLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Colon", Pattern: `:`},

	// Flow indicators are reserved so nested collections fail to parse.
	{Name: "Punct", Pattern: `[\[\]{},]`},

	{Name: "Word", Pattern: `[^\s:#\[\]{},]+`},
})

// textFile is the parse tree of a settings file.
type textFile struct {
	Entries []*textEntry `parser:"( @@ | EOL )*"`
}

// textEntry is a single "key: value..." line.
type textEntry struct {
	Pos lexer.Position

	Key    string   `parser:"@Word Colon"`
	Values []string `parser:"@Word* EOL"`
}

var textParser = participle.MustBuild[textFile](
	participle.Lexer(textLexer),
	participle.Elide("Comment", "Whitespace"),
)
