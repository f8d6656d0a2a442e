package schema

import "fmt"

// ParseFieldSet parses a federation field-set string like "id" or
// "id organization { id }" into a RequiredSelectionSet against ownerType.
// This is the minimal grammar federation directives need: a space-separated
// list of field names, each optionally followed by a brace-delimited nested
// field-set. Used by the builder for `@key`, and through
// Field.RequiresSelection/ProvidesSelection for `@requires`/`@provides` at
// plan time.
func ParseFieldSet(s *Schema, ownerType TypeID, raw string) (*RequiredSelectionSet, error) {
	p := &fieldSetParser{s: s, src: raw}
	sel, err := p.parseSelectionSet(ownerType)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected trailing input at %d", p.pos)
	}
	return sel, nil
}

type fieldSetParser struct {
	s   *Schema
	src string
	pos int
}

func (p *fieldSetParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\n' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *fieldSetParser) parseSelectionSet(ownerType TypeID) (*RequiredSelectionSet, error) {
	out := &RequiredSelectionSet{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] == '}' {
			break
		}
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		fieldID, ok := p.s.FieldByName(ownerType, name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q on type %s", name, p.s.types[ownerType].Name)
		}
		rsf := RequiredSelectionField{Field: fieldID}
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			p.pos++
			nested, err := p.parseSelectionSet(p.s.fields[fieldID].Type.NamedTypeID())
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.pos >= len(p.src) || p.src[p.pos] != '}' {
				return nil, fmt.Errorf("expected '}' at %d", p.pos)
			}
			p.pos++
			rsf.SubSelection = nested
		}
		out.Fields = append(out.Fields, rsf)
	}
	return out, nil
}

func (p *fieldSetParser) parseName() (string, error) {
	start := p.pos
	for p.pos < len(p.src) && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", fmt.Errorf("expected field name at %d", start)
	}
	return p.src[start:p.pos], nil
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
