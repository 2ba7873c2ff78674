// Package typeddata implements the EIP-712-style typed structured-data
// encoder and signer (spec.md §4.4): validates a typed-data document,
// canonically encodes its recursive type graph, computes a
// domain-separated digest, and produces a recoverable VRS-EIP signature.
package typeddata

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ValidationErrorKind enumerates the constructor's rejection reasons
// (spec.md §4.4).
type ValidationErrorKind string

const (
	ErrMissingTypes         ValidationErrorKind = "missing-types"
	ErrInvalidTypesValue    ValidationErrorKind = "invalid-types-value"
	ErrMissingDomainType    ValidationErrorKind = "missing-domain-type"
	ErrMissingDomain        ValidationErrorKind = "missing-domain"
	ErrInvalidDomainValue   ValidationErrorKind = "invalid-domain-value"
	ErrMissingPrimaryType   ValidationErrorKind = "missing-primary-type"
	ErrUnknownPrimaryType   ValidationErrorKind = "unknown-primary-type"
	ErrMissingMessage       ValidationErrorKind = "missing-message"
	ErrInvalidMessageValue  ValidationErrorKind = "invalid-message-value"
	ErrInvalidAtomicType    ValidationErrorKind = "invalid-atomic-type"
)

// ValidationError reports a rejected document, naming the kind from
// spec.md's fixed set.
type ValidationError struct {
	Kind ValidationErrorKind
}

func (e *ValidationError) Error() string { return "typeddata: " + string(e.Kind) }

// Member is one (name, type) entry of a type's ordered member list.
type Member struct {
	Name string
	Type string
}

// Document is a validated typed-data document: types, primaryType,
// domain, message (spec.md §4.4).
type Document struct {
	Types       map[string][]Member
	PrimaryType string
	Domain      map[string]interface{}
	Message     map[string]interface{}
}

const domainTypeName = "EIP712Domain"

var atomicByteN = regexp.MustCompile(`^bytes([1-9][0-9]?)$`)
var atomicUintN = regexp.MustCompile(`^uint(8|16|24|32|40|48|56|64|72|80|88|96|104|112|120|128|136|144|152|160|168|176|184|192|200|208|216|224|232|240|248|256)$`)
var atomicIntN = regexp.MustCompile(`^int(8|16|24|32|40|48|56|64|72|80|88|96|104|112|120|128|136|144|152|160|168|176|184|192|200|208|216|224|232|240|248|256)$`)

// typeKind classifies a member's declared type (spec.md §4.4).
type typeKind int

const (
	kindAtomic typeKind = iota
	kindDynamic
	kindReferenceSingle
	kindReferenceArray
)

// classifyType inspects typeName against the document's declared types.
func (d *Document) classifyType(typeName string) (kind typeKind, base string, ok bool) {
	switch typeName {
	case "address", "bool":
		return kindAtomic, typeName, true
	case "string", "bytes":
		return kindDynamic, typeName, true
	}
	if atomicByteN.MatchString(typeName) || atomicUintN.MatchString(typeName) || atomicIntN.MatchString(typeName) {
		return kindAtomic, typeName, true
	}
	base = strings.TrimSuffix(typeName, "[]")
	if base != typeName {
		if _, ok := d.Types[base]; ok {
			return kindReferenceArray, base, true
		}
		return 0, "", false
	}
	if idx := strings.LastIndexByte(typeName, '['); idx > 0 && strings.HasSuffix(typeName, "]") {
		base = typeName[:idx]
		if _, ok := d.Types[base]; ok {
			return kindReferenceArray, base, true
		}
		return 0, "", false
	}
	if _, ok := d.Types[typeName]; ok {
		return kindReferenceSingle, typeName, true
	}
	return 0, "", false
}

// NewDocument validates raw into a Document, per spec.md §4.4's fixed set
// of rejection kinds.
func NewDocument(raw map[string]interface{}) (*Document, error) {
	typesRaw, ok := raw["types"]
	if !ok {
		return nil, &ValidationError{Kind: ErrMissingTypes}
	}
	typesMap, ok := typesRaw.(map[string]interface{})
	if !ok {
		return nil, &ValidationError{Kind: ErrInvalidTypesValue}
	}

	types := make(map[string][]Member, len(typesMap))
	for name, membersRaw := range typesMap {
		membersList, ok := membersRaw.([]interface{})
		if !ok {
			return nil, &ValidationError{Kind: ErrInvalidTypesValue}
		}
		members := make([]Member, 0, len(membersList))
		for _, mRaw := range membersList {
			mObj, ok := mRaw.(map[string]interface{})
			if !ok {
				return nil, &ValidationError{Kind: ErrInvalidTypesValue}
			}
			mName, _ := mObj["name"].(string)
			mType, _ := mObj["type"].(string)
			if mName == "" || mType == "" {
				return nil, &ValidationError{Kind: ErrInvalidTypesValue}
			}
			members = append(members, Member{Name: mName, Type: mType})
		}
		types[name] = members
	}

	if _, ok := types[domainTypeName]; !ok {
		return nil, &ValidationError{Kind: ErrMissingDomainType}
	}

	domainRaw, ok := raw["domain"]
	if !ok {
		return nil, &ValidationError{Kind: ErrMissingDomain}
	}
	domain, ok := domainRaw.(map[string]interface{})
	if !ok {
		return nil, &ValidationError{Kind: ErrInvalidDomainValue}
	}

	primaryType, ok := raw["primaryType"].(string)
	if !ok || primaryType == "" {
		return nil, &ValidationError{Kind: ErrMissingPrimaryType}
	}
	if _, ok := types[primaryType]; !ok {
		return nil, &ValidationError{Kind: ErrUnknownPrimaryType}
	}

	messageRaw, ok := raw["message"]
	if !ok {
		return nil, &ValidationError{Kind: ErrMissingMessage}
	}
	message, ok := messageRaw.(map[string]interface{})
	if !ok {
		return nil, &ValidationError{Kind: ErrInvalidMessageValue}
	}

	doc := &Document{Types: types, PrimaryType: primaryType, Domain: domain, Message: message}

	for _, members := range types {
		for _, m := range members {
			if _, _, ok := doc.classifyType(m.Type); !ok {
				return nil, &ValidationError{Kind: ErrInvalidAtomicType}
			}
		}
	}

	return doc, nil
}

// dependents returns every reference type name reachable from typeName's
// member types, deduplicated, excluding typeName itself, in ascending
// ASCII order (spec.md §4.4 "encode-type").
func (d *Document) dependents(typeName string) []string {
	seen := make(map[string]struct{})
	var walk func(name string)
	walk = func(name string) {
		for _, m := range d.Types[name] {
			kind, base, ok := d.classifyType(m.Type)
			if !ok || (kind != kindReferenceSingle && kind != kindReferenceArray) {
				continue
			}
			if base == typeName {
				continue
			}
			if _, already := seen[base]; already {
				continue
			}
			seen[base] = struct{}{}
			walk(base)
		}
	}
	walk(typeName)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// encodeSingleType renders `T(name1 type1,name2 type2,...)` for one type.
func (d *Document) encodeSingleType(typeName string) string {
	var b strings.Builder
	b.WriteString(typeName)
	b.WriteByte('(')
	for i, m := range d.Types[typeName] {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.Type)
		b.WriteByte(' ')
		b.WriteString(m.Name)
	}
	b.WriteByte(')')
	return b.String()
}

// EncodeType implements spec.md §4.4's `encode-type`.
func (d *Document) EncodeType(typeName string) (string, error) {
	if _, ok := d.Types[typeName]; !ok {
		return "", fmt.Errorf("typeddata: unknown type %q", typeName)
	}
	var b strings.Builder
	b.WriteString(d.encodeSingleType(typeName))
	for _, dep := range d.dependents(typeName) {
		b.WriteString(d.encodeSingleType(dep))
	}
	return b.String(), nil
}

// TypeHash is keccak256(encode-type(T)).
func (d *Document) TypeHash(typeName string) ([32]byte, error) {
	encoded, err := d.EncodeType(typeName)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash([]byte(encoded)), nil
}
