package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBValueAndScan(t *testing.T) {
	original := JSONB{"field": "title", "version": 2}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal value error: %v", err)
	}

	if decoded["field"] != "title" {
		t.Fatalf("expected field title, got %v", decoded["field"])
	}

	var scanned JSONB
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if scanned["field"] != "title" {
		t.Fatalf("expected scanned field title, got %v", scanned["field"])
	}
}

func TestJSONBScanNil(t *testing.T) {
	scanned := JSONB{"stale": true}
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error: %v", err)
	}
	if scanned != nil {
		t.Fatalf("expected nil map after scanning NULL, got %v", scanned)
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleSupervisor, RoleAdmin, RoleSuperadmin} {
		if !role.Valid() {
			t.Errorf("%s must be valid", role)
		}
	}
	if Role("MANAGER").Valid() {
		t.Error("unknown role must be invalid")
	}
}

func TestRoleIsAdmin(t *testing.T) {
	if RoleUser.IsAdmin() || RoleSupervisor.IsAdmin() {
		t.Error("USER and SUPERVISOR must not count as admin")
	}
	if !RoleAdmin.IsAdmin() || !RoleSuperadmin.IsAdmin() {
		t.Error("ADMIN and SUPERADMIN must count as admin")
	}
}

func TestCategoryEnum(t *testing.T) {
	if len(Categories()) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(Categories()))
	}
	for _, category := range Categories() {
		if !category.Valid() {
			t.Errorf("%s must be valid", category)
		}
	}
	if Category("OTROS").Valid() {
		t.Error("unknown category must be invalid")
	}
}

func TestEntityTypeAndActionValid(t *testing.T) {
	if !EntityBigRock.Valid() || !EntityMembership.Valid() {
		t.Error("known entity types must be valid")
	}
	if EntityType("WIDGET").Valid() {
		t.Error("unknown entity type must be invalid")
	}
	if !LogCreate.Valid() || LogAction("ARCHIVE").Valid() {
		t.Error("action validity mismatch")
	}
}
