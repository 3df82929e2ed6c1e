package fields

import "testing"

func TestLoadParsesEmbeddedCatalog(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	all := catalog.All()
	if len(all) != 17 {
		t.Fatalf("expected 17 fields, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Order < all[i-1].Order {
			t.Fatalf("fields must be sorted by order, %q before %q", all[i-1].Key, all[i].Key)
		}
	}
	if all[0].Key != "full_name" {
		t.Fatalf("expected full_name first, got %q", all[0].Key)
	}
}

func TestCatalogOwnership(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	field, ok := catalog.Get("ticket_status")
	if !ok || field.FillableBy != FillableByAdmin {
		t.Fatalf("ticket_status must be admin-owned, got %+v", field)
	}

	if !catalog.WritableBy("full_name", "CLIENT") {
		t.Fatalf("clients must be able to write their own fields")
	}
	if catalog.WritableBy("ticket_status", "CLIENT") {
		t.Fatalf("clients must not write admin fields")
	}
	if !catalog.WritableBy("ticket_status", "ADMIN") || !catalog.WritableBy("full_name", "MASTER") {
		t.Fatalf("staff must write every field")
	}
	if catalog.WritableBy("missing", "MASTER") {
		t.Fatalf("unknown keys are never writable")
	}
}

func TestRequiredClientKeys(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	required := catalog.RequiredClientKeys()
	byKey := map[string]bool{}
	for _, key := range required {
		byKey[key] = true
	}

	for _, key := range []string{"full_name", "document_number", "phone", "email", "birth_date"} {
		if !byKey[key] {
			t.Fatalf("expected %q in the required set, got %v", key, required)
		}
	}
	if byKey["fan_team"] || byKey["profile_photo"] {
		t.Fatalf("optional fields must not be required, got %v", required)
	}
	if byKey["ticket_status"] {
		t.Fatalf("admin fields are never required from clients")
	}
}
