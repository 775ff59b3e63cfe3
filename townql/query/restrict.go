package query

import (
	"github.com/townql/townql/townql/catalog"
	qerrors "github.com/townql/townql/townql/errors"
)

// checkRestrictions enforces the connector rules of the language on the raw token
// stream, before a tree is built: at most one AND/OR, never two in a row, never
// together with OF, and never dangling at the end of the condition list.
//
// A leading field name missing from the catalog is reported here too, ahead of any
// grammar error the rest of the input would produce.
func checkRestrictions(tokens []Token) error {
	if len(tokens) > 0 {
		if err := unknownLeadingField(tokens[0]); err != nil {
			return err
		}
	}

	span := compoundSpan(tokens)

	connectors := 0
	hasOf := false
	for i, tok := range span {
		if tok.Kind == TokOf {
			hasOf = true
		}
		if !tok.Kind.IsConnector() {
			continue
		}
		connectors++
		if i+1 < len(span) && span[i+1].Kind.IsConnector() {
			return qerrors.RestrictionError("double operator detected: use only one AND or OR between conditions").At(span[i+1].Pos)
		}
	}

	if connectors > 1 {
		return qerrors.RestrictionError("cannot use more than one AND/OR operator")
	}
	if hasOf && connectors > 0 {
		return qerrors.RestrictionError("cannot use AND/OR with OF operator: run OF lookups as a single condition")
	}
	if n := len(span); n > 0 && span[n-1].Kind.IsConnector() {
		last := span[n-1]
		return qerrors.RestrictionError("incomplete compound query: missing condition after " + last.Kind.String()).At(last.Pos)
	}
	return nil
}

// checkLeadingField lexes only the first token of input, so an unknown field is
// still reported when a later character fails to lex.
func checkLeadingField(input string) error {
	tok, err := NewLexer(input).Next()
	if err != nil {
		return nil
	}
	return unknownLeadingField(tok)
}

func unknownLeadingField(tok Token) error {
	if tok.Kind != TokIdent {
		return nil
	}
	if _, ok := catalog.Lookup(tok.Value); !ok {
		return qerrors.UnknownFieldError(tok.Value).At(tok.Pos)
	}
	return nil
}

// compoundSpan returns the tokens that make up the condition list, i.e. everything
// before ORDER, LIMIT or the end of input.
func compoundSpan(tokens []Token) []Token {
	for i, tok := range tokens {
		switch tok.Kind {
		case TokOrder, TokLimit, TokEOF:
			return tokens[:i]
		}
	}
	return tokens
}
