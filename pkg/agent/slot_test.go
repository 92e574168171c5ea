package agent

import "testing"

func TestParseQuantityUnits(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"mujhe 2 lakh chahiye", 200000},
		{"loan against 50 gram gold", 50},
		{"1.5 crore ka business loan", 15000000},
		{"10 kg sona", 10000},
	}
	for _, c := range cases {
		got, ok := ParseQuantity(c.text)
		if !ok {
			t.Errorf("ParseQuantity(%q): no match, want %v", c.text, c.want)
			continue
		}
		if got != c.want {
			t.Errorf("ParseQuantity(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestParseQuantityDevanagariUnits(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"मेरा 5 लाख का लोन है", 500000},
		{"2 करोड़ का लोन चाहिए", 20000000},
		{"500 ग्राम सोना है", 500},
		{"१० किलो सोना", 10000},
	}
	for _, c := range cases {
		got, ok := ParseQuantity(c.text)
		if !ok {
			t.Errorf("ParseQuantity(%q): no match, want %v", c.text, c.want)
			continue
		}
		if got != c.want {
			t.Errorf("ParseQuantity(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestExtractSlotsHindiLoanScenario(t *testing.T) {
	extractor := NewSlotExtractor()
	slots := extractor.ExtractSlots("मेरा 5 लाख का लोन है, 22% पर", 1)

	found := map[string]Slot{}
	for _, s := range slots {
		found[s.CanonicalName] = s
	}

	if found["outstanding_amount"].Value != "500000" {
		t.Errorf("outstanding_amount = %+v, want 500000", found["outstanding_amount"])
	}
	if found["current_rate"].Value != "22" {
		t.Errorf("current_rate = %+v, want 22", found["current_rate"])
	}
}

func TestParseQuantityHindiWord(t *testing.T) {
	got, ok := ParseQuantity("mujhe teen appointment chahiye")
	if !ok || got != 3 {
		t.Errorf("ParseQuantity(hindi word) = %v, %v, want 3, true", got, ok)
	}
}

func TestSlotExtractorCompiledPatternsAreActuallyUsed(t *testing.T) {
	extractor := NewSlotExtractor()
	slots := extractor.ExtractSlots("call me on 9876543210 on 15/08/2026 for 2 lakh loan", 1)

	found := map[string]Slot{}
	for _, s := range slots {
		found[s.CanonicalName] = s
	}

	if found["phone"].Value != "9876543210" {
		t.Errorf("phone slot = %+v, want value 9876543210", found["phone"])
	}
	if found["appointment_date"].Value != "15/08/2026" {
		t.Errorf("appointment_date slot = %+v, want value 15/08/2026", found["appointment_date"])
	}
	if _, ok := found["quantity"]; !ok {
		t.Error("expected a quantity slot to be extracted")
	}
}

func TestSlotStoreNeverDecreasesConfidence(t *testing.T) {
	store := NewSlotStore()
	store.Set(Slot{CanonicalName: "city", Value: "Chennai", Confidence: 0.9, SourceTurnID: 1})

	applied := store.Set(Slot{CanonicalName: "city", Value: "Chennia", Confidence: 0.4, SourceTurnID: 1})
	if applied {
		t.Error("expected lower-confidence update to be rejected")
	}
	got, _ := store.Get("city")
	if got.Value != "Chennai" {
		t.Errorf("city = %q, want original value preserved", got.Value)
	}

	applied = store.Set(Slot{CanonicalName: "city", Value: "Chennai", Confidence: 0.95, SourceTurnID: 1})
	if !applied {
		t.Error("expected higher-confidence update to be applied")
	}
}
