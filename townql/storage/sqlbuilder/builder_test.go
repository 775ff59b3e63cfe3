package sqlbuilder

import "testing"

func TestBuilderPlaceholders(t *testing.T) {
	q := New(PlaceholderQuestion)
	if got := q.Arg(1) + q.Arg("a"); got != "??" {
		t.Errorf("expected ??, got %s", got)
	}
	d := New(PlaceholderDollar)
	if got := d.Arg(1) + "," + d.Arg("a") + "," + d.Arg(2.5); got != "$1,$2,$3" {
		t.Errorf("expected $1,$2,$3, got %s", got)
	}
	if d.Len() != 3 || d.Args()[1] != "a" {
		t.Errorf("unexpected args: %v", d.Args())
	}
}

func TestSQLOp(t *testing.T) {
	tests := map[string]string{"==": "=", "!=": "<>", "<": "<", ">=": ">="}
	for in, want := range tests {
		got, ok := SQLOp(in)
		if !ok || got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
	if _, ok := SQLOp("OF"); ok {
		t.Errorf("OF must not map to SQL")
	}
}
