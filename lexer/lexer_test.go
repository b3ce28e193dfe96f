package lexer

import "testing"

func TestLexer_Text(t *testing.T) {
	input := "Hello World"
	lex := New(input)
	tokens, err := lex.Tokenize()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tokens) != 2 { // TEXT + EOF
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}

	if tokens[0].Type != TOKEN_TEXT {
		t.Errorf("expected TEXT token, got %s", tokens[0].Type)
	}

	if tokens[0].Value != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", tokens[0].Value)
	}
}

func TestLexer_Output(t *testing.T) {
	input := "Hello {{ name }}!"
	lex := New(input)
	tokens, err := lex.Tokenize()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tokens) != 4 { // TEXT + OUTPUT + TEXT + EOF
		t.Fatalf("expected 4 tokens, got %d", len(tokens))
	}

	if tokens[1].Type != TOKEN_OUTPUT {
		t.Errorf("expected OUTPUT token, got %s", tokens[1].Type)
	}

	if tokens[1].Value != "name" {
		t.Errorf("expected 'name', got %q", tokens[1].Value)
	}
}

func TestLexer_Tag(t *testing.T) {
	input := "{% if x %}yes{% endif %}"
	lex := New(input)
	tokens, err := lex.Tokenize()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tokens[0].Type != TOKEN_TAG || tokens[0].Value != "if x" {
		t.Errorf("expected TAG 'if x', got %s %q", tokens[0].Type, tokens[0].Value)
	}

	if tokens[2].Type != TOKEN_TAG || tokens[2].Value != "endif" {
		t.Errorf("expected TAG 'endif', got %s %q", tokens[2].Type, tokens[2].Value)
	}
}

func TestLexer_UnclosedOutput(t *testing.T) {
	_, err := New("{{ name").Tokenize()
	if err == nil {
		t.Fatal("expected error for unclosed output tag")
	}
}

func TestLexer_StringLiteralHidesDelimiter(t *testing.T) {
	input := `{{ "}}" | upcase }}`
	tokens, err := New(input).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Value != `"}}" | upcase` {
		t.Errorf("expected quoted delimiter to be ignored, got %q", tokens[0].Value)
	}
}

func TestLexer_DashTrimStripsAdjacentWhitespace(t *testing.T) {
	input := "a   {%- if true -%}   b   {%- endif -%}   c"
	tokens, err := New(input).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	for _, tok := range tokens {
		if tok.Type == TOKEN_TEXT {
			texts = append(texts, tok.Value)
		}
	}
	if len(texts) != 3 {
		t.Fatalf("expected 3 text runs, got %d: %q", len(texts), texts)
	}
	if texts[0] != "a" {
		t.Errorf("expected leading run trimmed to %q, got %q", "a", texts[0])
	}
	if texts[1] != "b" {
		t.Errorf("expected middle run trimmed on both sides to %q, got %q", "b", texts[1])
	}
	if texts[2] != "c" {
		t.Errorf("expected trailing run trimmed to %q, got %q", "c", texts[2])
	}
}

func TestLexer_GreedyParserDefaultAllowsNewlineInBody(t *testing.T) {
	input := "{% if\nx %}yes{% endif %}"
	_, err := New(input).Tokenize()
	if err != nil {
		t.Fatalf("expected greedy_parser default to allow a newline in the tag body, got %v", err)
	}
}

func TestLexer_GreedyParserDisabledRejectsNewlineInBody(t *testing.T) {
	opts := Options{GreedyParser: false}
	input := "{% if\nx %}yes{% endif %}"
	_, err := NewWithOptions(input, opts).Tokenize()
	if err == nil {
		t.Fatal("expected error when greedy_parser is disabled and the tag body spans a newline")
	}
}

func TestLexer_GreedyParserDisabledStillAcceptsSingleLineBody(t *testing.T) {
	opts := Options{GreedyParser: false}
	tokens, err := NewWithOptions("{% if x %}yes{% endif %}", opts).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Value != "if x" {
		t.Errorf("expected 'if x', got %q", tokens[0].Value)
	}
}

func TestLexer_TrimBlocksStripsTrailingWhitespaceWithoutDash(t *testing.T) {
	opts := Options{GreedyParser: true, TrimBlocks: true}
	tokens, err := NewWithOptions("{% if true %}   a", opts).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Type != TOKEN_TAG || !tokens[0].TrimRight {
		t.Fatalf("expected tag token with TrimRight set under trim_blocks, got %+v", tokens[0])
	}
	if tokens[1].Type != TOKEN_TEXT || tokens[1].Value != "a" {
		t.Errorf("expected trailing text trimmed to %q, got %q", "a", tokens[1].Value)
	}
}

func TestLexer_TrimTagsStripsLeadingWhitespaceWithoutDash(t *testing.T) {
	opts := Options{GreedyParser: true, TrimTags: true}
	tokens, err := NewWithOptions("a   {% if true %}b", opts).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	for _, tok := range tokens {
		if tok.Type == TOKEN_TEXT {
			texts = append(texts, tok.Value)
		}
	}
	if len(texts) != 2 || texts[0] != "a" {
		t.Errorf("expected leading text trimmed to %q under trim_tags, got %q", "a", texts)
	}
}

func TestLexer_ExplicitDashOverridesTrimOptionsOff(t *testing.T) {
	opts := Options{GreedyParser: true}
	tokens, err := NewWithOptions("a   {%- if true -%}   b", opts).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	for _, tok := range tokens {
		if tok.Type == TOKEN_TEXT {
			texts = append(texts, tok.Value)
		}
	}
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("expected explicit dashes to trim both sides regardless of trim_blocks/trim_tags defaults, got %q", texts)
	}
}
