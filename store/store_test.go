package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
	"github.com/MariaGuerraSappho/manos/mapper"
)

func sampleSet(id, name string) mapper.MappingSet {
	return mapper.MappingSet{
		ID:   id,
		Name: name,
		Mappings: []mapper.Mapping{
			{Kind: effect.Volume, Param: "level", Feature: gesture.Proximity},
			{Kind: effect.Delay, Param: "time", Feature: gesture.Height, Inverted: true},
			{Kind: effect.Reverb, Param: effect.WetParam, Feature: gesture.Spread},
		},
	}
}

func testStore(t *testing.T, s mapper.Store) {
	t.Helper()

	set := sampleSet("a", "first")

	if err := s.Save(set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(loaded, set) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, set)
	}

	if err := s.Save(sampleSet("b", "second")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(infos) != 2 {
		t.Fatalf("List = %d entries, want 2", len(infos))
	}

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Load("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v, want ErrNotFound", err)
	}

	if err := s.Delete("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double Delete = %v, want ErrNotFound", err)
	}

	infos, err = s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(infos) != 1 || infos[0].ID != "b" {
		t.Fatalf("List after delete = %+v, want only b", infos)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(filepath.Join(t.TempDir(), "mappings.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	testStore(t, s)
}

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mappings.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	set := sampleSet("keep", "kept")
	if err := s.Save(set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	loaded, err := reopened.Load("keep")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(loaded, set) {
		t.Fatalf("reopened round trip mismatch:\n got %+v\nwant %+v", loaded, set)
	}
}

func TestSaveRejectsEmptyID(t *testing.T) {
	t.Parallel()

	if err := NewMemoryStore().Save(mapper.MappingSet{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestFileStoreWireFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mappings.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := s.Save(sampleSet("wire", "wire")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	for _, key := range []string{`"effectId"`, `"parameter"`, `"feature"`, `"inverted"`, `"delay"`, `"height"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("stored JSON missing %s:\n%s", key, data)
		}
	}
}
