package icaoparse

import (
	"testing"
)

func TestParse_PreFilter(t *testing.T) {
	tests := []struct {
		name string
		env  RawEnvelope
	}{
		{"cancelled or expired flag", RawEnvelope{NotamNumber: "A0001/25", CancelledOrExpired: true}},
		{"status expired", RawEnvelope{NotamNumber: "A0001/25", Status: "Expired"}},
		{"missing notam number", RawEnvelope{ICAOMessage: "Q) EKDK/QMRLC/..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.env, nil)
			if ok || got != nil {
				t.Errorf("Parse() = (%v, %v), want (nil, false)", got, ok)
			}
		})
	}
}

func TestParse_Identity(t *testing.T) {
	env := RawEnvelope{
		NotamNumber: "A3097/25",
		ICAOMessage: "A3097/25 NOTAMN\nQ) EKDK/QMRLC/IV/NBO/A/000/999/5503N00848E005\nA) EKDK B) 2501010000 C) 2501312359\nE) RWY 12/30 CLSD",
	}
	got, ok := Parse(env, nil)
	if !ok {
		t.Fatal("Parse() returned ok=false")
	}
	if got.ID != "A3097/25" {
		t.Errorf("ID = %s, want A3097/25", got.ID)
	}
	if got.Series != "A" {
		t.Errorf("Series = %s, want A", got.Series)
	}
	if got.Number != 3097 {
		t.Errorf("Number = %d, want 3097", got.Number)
	}
	if got.Year != 25 {
		t.Errorf("Year = %d, want 25", got.Year)
	}
}

func TestParse_KindDetection(t *testing.T) {
	tests := []struct {
		name       string
		firstLine  string
		wantKind   string
		wantOther  string
	}{
		{"new", "A3097/25 NOTAMN", "NEW", ""},
		{"replace", "R2198/25 NOTAMR R1978/25", "REPLACE", "R1978/25"},
		{"cancel", "A0002/25 NOTAMC A0001/25", "CANCEL", "A0001/25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := RawEnvelope{NotamNumber: "X0001/25", ICAOMessage: tt.firstLine + "\nE) body"}
			got, ok := Parse(env, nil)
			if !ok {
				t.Fatal("Parse() returned ok=false")
			}
			if string(got.Kind) != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			switch tt.wantKind {
			case "REPLACE":
				if got.ReplacesID != tt.wantOther {
					t.Errorf("ReplacesID = %s, want %s", got.ReplacesID, tt.wantOther)
				}
			case "CANCEL":
				if got.CancelsID != tt.wantOther {
					t.Errorf("CancelsID = %s, want %s", got.CancelsID, tt.wantOther)
				}
			}
		})
	}
}

func TestParse_PermAndDatedValidity(t *testing.T) {
	t.Run("PERM", func(t *testing.T) {
		env := RawEnvelope{
			NotamNumber: "A0001/25",
			ICAOMessage: "A0001/25 NOTAMN\nA) EKCH B) 2501010000 C) PERM\nE) text",
		}
		got, ok := Parse(env, nil)
		if !ok {
			t.Fatal("Parse() returned ok=false")
		}
		if !got.IsPermanent {
			t.Error("IsPermanent = false, want true")
		}
		if got.ValidTo != nil {
			t.Errorf("ValidTo = %v, want nil", got.ValidTo)
		}
	})

	t.Run("dated", func(t *testing.T) {
		env := RawEnvelope{
			NotamNumber: "A0001/25",
			ICAOMessage: "A0001/25 NOTAMN\nA) EKCH B) 2501010000 C) 2501312359\nE) text",
		}
		got, ok := Parse(env, nil)
		if !ok {
			t.Fatal("Parse() returned ok=false")
		}
		if got.IsPermanent {
			t.Error("IsPermanent = true, want false")
		}
		if got.ValidTo == nil {
			t.Fatal("ValidTo = nil, want non-nil")
		}
	})
}

func TestParse_HTMLEntitiesInBody(t *testing.T) {
	env := RawEnvelope{
		NotamNumber: "A0001/25",
		ICAOMessage: "A0001/25 NOTAMN\nE) PILOT&apos;S DISCRETION AT &amp; NEAR RWY F) 100FT",
	}
	got, ok := Parse(env, nil)
	if !ok {
		t.Fatal("Parse() returned ok=false")
	}
	if want := "PILOT'S DISCRETION AT & NEAR RWY"; got.Body != want {
		t.Errorf("Body = %q, want %q", got.Body, want)
	}
}

func TestParse_QCodeDecode(t *testing.T) {
	env := RawEnvelope{
		NotamNumber: "A0001/25",
		ICAOMessage: "A0001/25 NOTAMN\nQ) EKDK/QMRLC/IV/NBO/A/000/999/4904N00607E003\nA) EKDK\nE) text",
	}
	got, ok := Parse(env, nil)
	if !ok {
		t.Fatal("Parse() returned ok=false")
	}
	if got.QSubject != "Runway" {
		t.Errorf("QSubject = %s, want Runway", got.QSubject)
	}
	if got.QCondition != "Closed" {
		t.Errorf("QCondition = %s, want Closed", got.QCondition)
	}
}

func TestParse_CoordinateDecode(t *testing.T) {
	env := RawEnvelope{
		NotamNumber: "A0001/25",
		ICAOMessage: "A0001/25 NOTAMN\nQ) EKDK/QMRLC/IV/NBO/A/000/999/4904N00607E003\nA) EKDK\nE) text",
	}
	got, ok := Parse(env, nil)
	if !ok {
		t.Fatal("Parse() returned ok=false")
	}
	if got.Latitude == nil || got.Longitude == nil || got.RadiusNM == nil {
		t.Fatal("expected latitude, longitude and radius to be decoded")
	}
	if diff := *got.Latitude - 49.0667; diff > 0.001 || diff < -0.001 {
		t.Errorf("Latitude = %f, want ~49.0667", *got.Latitude)
	}
	if diff := *got.Longitude - 6.1167; diff > 0.001 || diff < -0.001 {
		t.Errorf("Longitude = %f, want ~6.1167", *got.Longitude)
	}
	if *got.RadiusNM != 3 {
		t.Errorf("RadiusNM = %d, want 3", *got.RadiusNM)
	}
}

func TestParse_SubFieldFailureNonFatal(t *testing.T) {
	env := RawEnvelope{
		NotamNumber: "A0001/25",
		ICAOMessage: "A0001/25 NOTAMN\nQ) garbage\nA) EKCH B) notadate C) alsobad\nE) text",
	}
	got, ok := Parse(env, nil)
	if !ok {
		t.Fatal("Parse() returned ok=false, want a record even with bad sub-fields")
	}
	if got.Location != "EKCH" {
		t.Errorf("Location = %s, want EKCH", got.Location)
	}
}
