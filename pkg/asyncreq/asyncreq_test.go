package asyncreq

import "testing"

func TestCompleteInvokesHandlerOnce(t *testing.T) {
	calls := 0
	var gotResp int
	var gotErr error

	req := New(func(resp int, err error) {
		calls++
		gotResp = resp
		gotErr = err
	})

	req.Complete(42, nil)
	req.Complete(7, nil) // second call must be a silent no-op

	if calls != 1 {
		t.Fatalf("expected exactly 1 handler invocation, got %d", calls)
	}
	if gotResp != 42 {
		t.Fatalf("expected the first Complete's response to stick, got %d", gotResp)
	}
	if gotErr != nil {
		t.Fatalf("expected no error, got %v", gotErr)
	}
}

func TestEachRequestGetsAUniqueID(t *testing.T) {
	a := New(func(int, error) {})
	b := New(func(int, error) {})

	if a.ID() == b.ID() {
		t.Fatal("expected distinct correlation IDs for distinct requests")
	}
}

func TestCompleteOnNilRequestIsSafe(t *testing.T) {
	var req *Request[int]
	req.Complete(1, nil) // must not panic
}
