package markov

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	var buf bytes.Buffer
	if err := s.ExportModel(ctx, modelInfo, &buf); err != nil {
		t.Fatalf("ExportModel failed: %v", err)
	}

	var exported ExportedModel
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	want := [][]string{{"one", "fish", "two", "fish"}, {"red", "fish", "blue", "fish"}}
	if exported.Name != "test_model" || exported.Order != 2 || !reflect.DeepEqual(exported.Sequences, want) {
		t.Fatalf("unexpected export %+v", exported)
	}

	_, s2 := setupTestDB(t)
	imported, err := s2.ImportModel(ctx, &buf)
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if imported.Name != modelInfo.Name || imported.Order != modelInfo.Order {
		t.Errorf("imported model = %+v, want name %q order %d", imported, modelInfo.Name, modelInfo.Order)
	}

	c, err := s2.Corpus(ctx, imported, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.Sequences(), want) {
		t.Errorf("imported corpus = %v, want %v", c.Sequences(), want)
	}

	// The chains are rebuilt from the sentences.
	oneID, _ := s2.VocabStr(ctx, "one")
	fishID, _ := s2.VocabStr(ctx, "fish")
	_, total, err := s2.GetNextTokens(ctx, imported, PrefixKey(oneID, fishID))
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("expected prefix 'one fish' to have frequency 1, got %d", total)
	}
}

func TestImportModel_MergesIntoExisting(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	data := `{"name": "test_model", "order": 3, "sequences": [["big", "fish"]]}`
	imported, err := s.ImportModel(ctx, strings.NewReader(data))
	if err != nil {
		t.Fatalf("ImportModel failed: %v", err)
	}
	if imported.Id != modelInfo.Id || imported.Order != 2 {
		t.Errorf("expected the existing model with order 2, got %+v", imported)
	}

	lengths, err := s.Lengths(ctx, imported)
	if err != nil {
		t.Fatal(err)
	}
	if lengths[4] != 2 || lengths[2] != 1 {
		t.Errorf("unexpected lengths after merge: %v", lengths)
	}
}

func TestImportModel_Invalid(t *testing.T) {
	ctx, s, _ := setupTestDBWithTraining(t)

	testCases := []struct {
		name string
		data string
	}{
		{name: "bad json", data: `{"name":`},
		{name: "no name", data: `{"order": 1, "sequences": []}`},
		{name: "bad order", data: `{"name": "x", "order": 0, "sequences": []}`},
		{name: "empty token", data: `{"name": "x", "order": 1, "sequences": [["a", ""]]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.ImportModel(ctx, strings.NewReader(tc.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	// A failed import leaves nothing behind.
	if _, err := s.GetModelInfo(ctx, "x"); err == nil {
		t.Error("expected model x not to exist after a failed import")
	}
}
