package responsetree

import "testing"

func TestTree_BuildAndSerializeObject(t *testing.T) {
	tr := New()
	name := tr.NewScalar("Ada")
	tr.SetField(tr.Root, "name", name)

	age := tr.NewScalar(42)
	tr.SetField(tr.Root, "age", age)

	got := tr.Serialize(tr.Root).(map[string]any)
	if got["name"] != "Ada" || got["age"] != 42 {
		t.Fatalf("unexpected serialization: %#v", got)
	}
}

func TestTree_SetFieldOverwritesPreservesOrder(t *testing.T) {
	tr := New()
	tr.SetField(tr.Root, "a", tr.NewScalar(1))
	tr.SetField(tr.Root, "b", tr.NewScalar(2))
	tr.SetField(tr.Root, "a", tr.NewScalar(3))

	obj := tr.Node(tr.Root)
	if len(obj.Fields) != 2 {
		t.Fatalf("expected 2 fields after overwrite, got %d", len(obj.Fields))
	}
	if obj.Fields[0].Name != "a" || tr.Serialize(obj.Fields[0].Value) != 3 {
		t.Fatalf("expected field a overwritten in place, got %#v", obj.Fields[0])
	}
}

func TestTree_ListSerialization(t *testing.T) {
	tr := New()
	list := tr.NewList(3)
	tr.SetListItem(list, 0, tr.NewScalar("x"))
	tr.SetListItem(list, 1, tr.NewNull())
	tr.SetListItem(list, 2, tr.NewScalar("z"))
	tr.SetField(tr.Root, "items", list)

	got := tr.Serialize(tr.Root).(map[string]any)["items"].([]any)
	if got[0] != "x" || got[1] != nil || got[2] != "z" {
		t.Fatalf("unexpected list serialization: %#v", got)
	}
}

func TestTree_NullifiedPrefixSwallowsNestedWrites(t *testing.T) {
	tr := New()
	friend := tr.NewObject()
	tr.SetField(tr.Root, "friend", friend)

	path := Path{"friend"}
	tr.MarkNullifiedPrefix(path)
	tr.SetField(tr.Root, "friend", tr.NewNull())

	if !tr.HasNullifiedPrefix(path.Append("name")) {
		t.Fatal("expected nested path under nullified prefix to report nullified")
	}

	tr.AddError(GraphQLError{Message: "boom", Path: path.Append("name")})
	if len(tr.Errors) != 0 {
		t.Fatalf("expected error under nullified prefix to be swallowed, got %v", tr.Errors)
	}
}

func TestTree_AddErrorOutsideNullifiedPrefixIsKept(t *testing.T) {
	tr := New()
	tr.AddError(GraphQLError{Message: "unrelated", Path: Path{"other"}})
	if len(tr.Errors) != 1 {
		t.Fatalf("expected error to be recorded, got %v", tr.Errors)
	}
}

func TestTree_SerializeResponseOmitsDataWhenRootNullified(t *testing.T) {
	tr := New()
	tr.MarkNullifiedPrefix(nil)
	resp := tr.SerializeResponse()
	if resp.Data != nil {
		t.Fatalf("expected nil data when root nullified, got %#v", resp.Data)
	}
}

func TestPath_StringFormatting(t *testing.T) {
	p := Path{"user", "friends", 2, "name"}
	if got, want := p.String(), "user.friends[2].name"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPath_TopLevelField(t *testing.T) {
	p := Path{"user", "friends", 2, "name"}
	if got, want := p.TopLevelField().String(), "user"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
