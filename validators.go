package main

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Validators are pure: they inspect decoded payloads against a catalog
// snapshot handed to them by the caller, and never touch storage or network.

// zombiePayload is the raw decoded shape of a create or update body. Raw
// fields keep presence, type, and value checks as separate steps instead of
// probing an untyped map at each call site. A nil field was absent from the
// body; a field sent as JSON null stays present (and non-nil), so rules
// keyed on presence, like the immutable-field checks, still see it.
type zombiePayload struct {
	ID           *json.RawMessage
	CreationDate *json.RawMessage
	Name         *json.RawMessage
	Items        *json.RawMessage
}

// UnmarshalJSON keeps absent and null fields apart: plain struct decoding
// would zero a *json.RawMessage field for both.
func (p *zombiePayload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	take := func(key string) *json.RawMessage {
		if raw, ok := fields[key]; ok {
			return &raw
		}
		return nil
	}
	p.ID = take("id")
	p.CreationDate = take("creationDate")
	p.Name = take("name")
	p.Items = take("items")
	return nil
}

func isJSONNull(raw *json.RawMessage) bool {
	return raw == nil || bytes.Equal(bytes.TrimSpace(*raw), []byte("null"))
}

// validateName checks the raw name field: it must be present, a string, and
// 1-32 characters long.
func validateName(raw *json.RawMessage) (string, *ValidationError) {
	if isJSONNull(raw) {
		return "", validationErrorf(CodeInvalidName, "Zombie must have a name")
	}
	var name string
	if err := json.Unmarshal(*raw, &name); err != nil {
		return "", validationErrorf(CodeInvalidName, "Zombie name must be a string")
	}
	if name == "" {
		return "", validationErrorf(CodeInvalidName, "Zombie must have a name")
	}
	if utf8.RuneCountInString(name) > 32 {
		return "", validationErrorf(CodeInvalidName, "Zombie name must be 1-32 characters in length")
	}
	return name, nil
}

// validateItem checks a single raw item at the given index: it must be an
// object carrying both id and name, and the (id, name) pair must match one
// catalog entry exactly. A mismatched pairing is rejected even if each half
// exists independently.
func validateItem(raw json.RawMessage, index int, catalog Catalog) (ItemRef, *ValidationError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ItemRef{}, validationErrorf(CodeItemNotAnObject,
			"A zombie item must be an object. Check item at index %d", index)
	}
	rawID, hasID := fields["id"]
	rawName, hasName := fields["name"]
	if !hasID || !hasName {
		return ItemRef{}, validationErrorf(CodeItemScheme,
			"Zombie item must match { id: Number, name: String }. Check item at index %d", index)
	}

	var ref ItemRef
	idOK := json.Unmarshal(rawID, &ref.ID) == nil
	nameOK := json.Unmarshal(rawName, &ref.Name) == nil
	if idOK && nameOK {
		for _, entry := range catalog.Items {
			if entry.ID == ref.ID && entry.Name == ref.Name {
				return ref, nil
			}
		}
	}
	return ItemRef{}, validationErrorf(CodeItemName,
		"Zombie item must be one of the known catalog items. Check item at index %d", index)
}

// validateItems checks the raw items field: it must be an array of at most 5
// valid items. Items are validated in order and the first failure wins.
func validateItems(raw *json.RawMessage, catalog Catalog) ([]ItemRef, *ValidationError) {
	// null is not an array, and json.Unmarshal would wave it through as a
	// nil slice
	if isJSONNull(raw) {
		return nil, validationErrorf(CodeItemsNotAnArray, "Zombie items must be an array")
	}
	var elems []json.RawMessage
	if json.Unmarshal(*raw, &elems) != nil {
		return nil, validationErrorf(CodeItemsNotAnArray, "Zombie items must be an array")
	}
	if len(elems) > 5 {
		return nil, validationErrorf(CodeTooManyItems, "A zombie can have up to 5 items")
	}
	refs := make([]ItemRef, 0, len(elems))
	for i, elem := range elems {
		ref, verr := validateItem(elem, i, catalog)
		if verr != nil {
			return nil, verr
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// validateZombie checks a full create payload and projects it to a draft
// carrying only name and items. Any other caller-supplied field is dropped.
// Items are optional and default to an empty list.
func validateZombie(p zombiePayload, catalog Catalog) (ZombieDraft, *ValidationError) {
	name, verr := validateName(p.Name)
	if verr != nil {
		return ZombieDraft{}, verr
	}
	draft := ZombieDraft{Name: name, Items: []ItemRef{}}
	if p.Items != nil {
		items, verr := validateItems(p.Items, catalog)
		if verr != nil {
			return ZombieDraft{}, verr
		}
		draft.Items = items
	}
	return draft, nil
}

// validateMutation checks a partial update payload. Immutable fields are
// rejected outright, at least one mutable field must be present, and present
// fields follow the same rules as on create.
func validateMutation(p zombiePayload, catalog Catalog) (ZombiePatch, *ValidationError) {
	if p.ID != nil {
		return ZombiePatch{}, validationErrorf(CodeImmutableID,
			"Zombie id is automatically generated and cannot be updated manually")
	}
	if p.CreationDate != nil {
		return ZombiePatch{}, validationErrorf(CodeImmutableCreation,
			"Zombie's creation date is automatically generated and cannot be updated manually")
	}
	if p.Name == nil && p.Items == nil {
		return ZombiePatch{}, validationErrorf(CodeInvalidMutation,
			"You need to mutate at least one of the zombie's props [name, items]")
	}

	var patch ZombiePatch
	if p.Name != nil {
		name, verr := validateName(p.Name)
		if verr != nil {
			return ZombiePatch{}, verr
		}
		patch.Name = &name
	}
	if p.Items != nil {
		items, verr := validateItems(p.Items, catalog)
		if verr != nil {
			return ZombiePatch{}, verr
		}
		patch.Items = &items
	}
	return patch, nil
}

// validateDeletions translates a no-op delete into a not-found condition.
func validateDeletions(deleted []Zombie) *ValidationError {
	if len(deleted) == 0 {
		return validationErrorf(CodeNothingDeleted,
			"Could not find any zombies under the provided criteria")
	}
	return nil
}
