package diag

import "testing"

func TestRecordAndResults(t *testing.T) {
	s := New("main.8o")
	s.SetPosition(3, 5)
	s.Record(Warning, "unused constant %q", "tile_size")

	results := s.Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d", len(results))
	}
	r := results[0]
	if r.Severity != Warning {
		t.Fatalf("expected Warning severity, got %v", r.Severity)
	}
	if r.Message != `unused constant "tile_size"` {
		t.Fatalf("unexpected message: %q", r.Message)
	}
	if len(r.Locations) != 1 || r.Locations[0].Line != 3 || r.Locations[0].Column != 5 {
		t.Fatalf("expected the current position recorded, got %+v", r.Locations)
	}
}

func TestPushPopNestsLocationStack(t *testing.T) {
	s := New("main.8o")
	s.SetPosition(10, 1)
	s.Push("included.8o", 1, 1, Included)
	s.SetPosition(2, 3)
	s.Record(Info, "inside include")
	s.Pop()
	s.Record(Info, "back in root")

	results := s.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	inInclude := results[0]
	if len(inInclude.Locations) != 2 {
		t.Fatalf("expected include diagnostic to carry 2 stack frames, got %d", len(inInclude.Locations))
	}
	if inInclude.Locations[0].File != "included.8o" || inInclude.Locations[0].Role != Included {
		t.Fatalf("expected innermost frame to be the include, got %+v", inInclude.Locations[0])
	}
	if inInclude.Locations[1].File != "main.8o" || inInclude.Locations[1].Role != Root {
		t.Fatalf("expected outermost frame to be the root file, got %+v", inInclude.Locations[1])
	}

	backInRoot := results[1]
	if len(backInRoot.Locations) != 1 || backInRoot.Locations[0].File != "main.8o" {
		t.Fatalf("expected Pop to restore the root-only stack, got %+v", backInRoot.Locations)
	}
}

func TestPopNeverDropsTheRootFrame(t *testing.T) {
	s := New("main.8o")
	s.Pop()
	s.Pop()
	s.Record(Info, "still rooted")
	if got := s.Results()[0].Locations; len(got) != 1 || got[0].Role != Root {
		t.Fatalf("expected Pop past the root frame to be a no-op, got %+v", got)
	}
}

func TestFatalfPanicsAndCaptureProducesErrorResult(t *testing.T) {
	s := New("main.8o")
	s.SetPosition(7, 2)

	var captured Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				captured = s.Capture(r)
			}
		}()
		s.Fatalf("undefined label %q", "player_x")
	}()

	if captured.Severity != Error {
		t.Fatalf("expected Capture to report Error severity, got %v", captured.Severity)
	}
	if captured.Message != `undefined label "player_x"` {
		t.Fatalf("unexpected captured message: %q", captured.Message)
	}
	if len(captured.Locations) != 1 || captured.Locations[0].Line != 7 {
		t.Fatalf("expected the captured location to be the position at panic time, got %+v", captured.Locations)
	}
}

func TestResultErrorFormatting(t *testing.T) {
	r := Result{
		Severity:  Error,
		Message:   "boom",
		Locations: []Frame{{File: "main.8o", Line: 4, Column: 9}},
	}
	want := "main.8o:4:9: error: boom"
	if got := r.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResultErrorWithNoLocationsFallsBackToMessage(t *testing.T) {
	r := Result{Message: "bare message"}
	if got := r.Error(); got != "bare message" {
		t.Fatalf("expected bare message fallback, got %q", got)
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{Ok: "ok", Info: "info", Warning: "warning", Error: "error"}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Errorf("severity %d: expected %q, got %q", sev, want, got)
		}
	}
}
