package store

import (
	"reflect"
	"testing"
)

func TestWhereBuilder_Empty(t *testing.T) {
	clause, args := NewWhere().Clause()
	if clause != "" {
		t.Errorf("expected empty clause, got %q", clause)
	}
	if args != nil {
		t.Errorf("expected nil args, got %v", args)
	}
}

func TestWhereBuilder_JoinsWithAnd(t *testing.T) {
	b := NewWhere().
		Add("user_id = ?", 7).
		Add("type = ?", "debit").
		Add("(description LIKE ? OR notes LIKE ?)", "%rent%", "%rent%")

	clause, args := b.Clause()

	want := " WHERE user_id = ? AND type = ? AND (description LIKE ? OR notes LIKE ?)"
	if clause != want {
		t.Errorf("clause mismatch:\nwant %q\ngot  %q", want, clause)
	}
	wantArgs := []interface{}{7, "debit", "%rent%", "%rent%"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args mismatch: want %v, got %v", wantArgs, args)
	}
}

func TestWhereBuilder_SingleCondition(t *testing.T) {
	clause, args := NewWhere().Add("user_id = ?", 1).Clause()
	if clause != " WHERE user_id = ?" {
		t.Errorf("unexpected clause %q", clause)
	}
	if len(args) != 1 || args[0] != 1 {
		t.Errorf("unexpected args %v", args)
	}
}
