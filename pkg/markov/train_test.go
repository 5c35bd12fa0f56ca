package markov

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTrain(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	modelInfo := ModelInfo{Name: "train_test", Order: 2}

	if err := s.InsertModel(ctx, modelInfo); err != nil {
		t.Fatalf("InsertModel failed: %v", err)
	}
	modelInfo, _ = s.GetModelInfo(ctx, modelInfo.Name)

	trainingData := "a b c. a b d."
	if err := s.Train(ctx, modelInfo, strings.NewReader(trainingData)); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}

	var chainCount int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_chains WHERE model_id = ?", modelInfo.Id).Scan(&chainCount)
	if err != nil {
		t.Fatal(err)
	}
	// <S><S>->a, <S>a->b, ab->c, ab->d, bc->END, bd->END
	if chainCount != 6 {
		t.Errorf("expected 6 chains to be created, but got %d", chainCount)
	}

	aID, _ := s.VocabStr(ctx, "a")
	bID, _ := s.VocabStr(ctx, "b")
	tokens, totalFreq, err := s.GetNextTokens(ctx, modelInfo, PrefixKey(aID, bID))
	if err != nil {
		t.Fatalf("GetNextTokens failed: %v", err)
	}
	if totalFreq != 2 {
		t.Errorf("expected prefix 'a b' to have total frequency of 2, got %d", totalFreq)
	}
	if len(tokens) != 2 {
		t.Errorf("expected prefix 'a b' to lead to 2 unique next tokens, got %d", len(tokens))
	}

	var seqCount int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_sequences WHERE model_id = ? AND seq_length = 3", modelInfo.Id).Scan(&seqCount)
	if seqCount != 2 {
		t.Errorf("expected 2 stored sequences of length 3, got %d", seqCount)
	}
}

func TestTrain_TrailingSentence(t *testing.T) {
	ctx, s, _ := setupTestDBWithTraining(t)
	model, err := s.EnsureModel(ctx, "trailing", 1)
	if err != nil {
		t.Fatal(err)
	}

	if err = s.Train(ctx, model, strings.NewReader("first one.\nno full stop here")); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}
	lengths, err := s.Lengths(ctx, model)
	if err != nil {
		t.Fatal(err)
	}
	if lengths[2] != 1 || lengths[4] != 1 {
		t.Errorf("expected one sentence each of lengths 2 and 4, got %v", lengths)
	}
}

func TestTrain_CancelledRollsBack(t *testing.T) {
	db, s := setupTestDB(t)
	model, err := s.EnsureModel(context.Background(), "cancel", 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Train(ctx, model, strings.NewReader("never stored."))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var count int
	_ = db.QueryRow("SELECT COUNT(*) FROM markov_sequences WHERE model_id = ?", model.Id).Scan(&count)
	if count != 0 {
		t.Errorf("expected no sequences after a cancelled Train, got %d", count)
	}
}

func TestInsertToken(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	blueId, _ := s.VocabStr(ctx, "blue")
	fishId, _ := s.VocabStr(ctx, "fish")
	redId, _ := s.VocabStr(ctx, "red")
	prefixKey := PrefixKey(blueId, fishId)

	if err := s.InsertToken(ctx, modelInfo, prefixKey, redId); err != nil {
		t.Fatalf("InsertToken failed: %v", err)
	}

	// "blue fish" is followed by END (freq 1) and now also "red" (freq 1)
	tokens, totalFreq, _ := s.GetNextTokens(ctx, modelInfo, prefixKey)
	if totalFreq != 2 {
		t.Errorf("expected total frequency of 2 after InsertToken, got %d", totalFreq)
	}

	var found bool
	for _, token := range tokens {
		if token.Id == redId {
			found = true
			if token.Freq != 1 {
				t.Errorf("expected freq of 1 for inserted token, got %d", token.Freq)
			}
		}
	}
	if !found {
		t.Error("did not find artificially inserted token")
	}

	if err := s.InsertToken(ctx, modelInfo, "999 998", redId); err == nil {
		t.Error("expected an error for an unknown prefix")
	}
}

func BenchmarkTrain(b *testing.B) {
	corpus := createBenchmarkCorpus()
	ctx := context.Background()

	for _, order := range []int{1, 2, 3} {
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			_, s := setupTestDBBench(b)
			model := ModelInfo{Name: "bench_train", Order: order}
			if err := s.InsertModel(ctx, model); err != nil {
				b.Fatalf("InsertModel failed: %v", err)
			}
			model, _ = s.GetModelInfo(ctx, model.Name)

			b.SetBytes(int64(len(corpus)))
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := s.Train(ctx, model, strings.NewReader(corpus)); err != nil {
					b.Fatalf("Train() failed: %v", err)
				}
			}
		})
	}
}
