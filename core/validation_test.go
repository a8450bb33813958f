package core

import (
	"errors"
	"testing"
)

func TestValidateDrug(t *testing.T) {
	tests := []struct {
		name    string
		drug    *Drug
		wantErr error
	}{
		{
			name:    "valid drug",
			drug:    &Drug{ID: "1-23456", Name: "Aspirin", Processed: StateEnriched},
			wantErr: nil,
		},
		{
			name:    "valid raw drug without meta",
			drug:    &Drug{ID: "1-23456", Name: "Aspirin"},
			wantErr: nil,
		},
		{
			name:    "nil drug",
			drug:    nil,
			wantErr: ErrInvalidDrug,
		},
		{
			name:    "empty id",
			drug:    &Drug{ID: "  ", Name: "Aspirin"},
			wantErr: ErrEmptyDrugID,
		},
		{
			name:    "empty name",
			drug:    &Drug{ID: "1-23456"},
			wantErr: ErrEmptyDrugName,
		},
		{
			name:    "unknown state",
			drug:    &Drug{ID: "1-23456", Name: "Aspirin", Processed: 1},
			wantErr: ErrInvalidProcessingState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDrug(tt.drug)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDrug() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDrug() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArticle(t *testing.T) {
	tests := []struct {
		name    string
		article *Article
		wantErr error
	}{
		{
			name:    "valid raw article",
			article: &Article{ID: 42, Title: "Schmerzmittel im Vergleich"},
			wantErr: nil,
		},
		{
			name: "valid enriched article",
			article: &Article{
				ID:        42,
				Processed: StateEnriched,
				Meta: &ArticleMeta{Keywords: []KeywordFact{
					{Name: "Aspirin", Kind: KindTradeName},
				}},
			},
			wantErr: nil,
		},
		{
			name:    "enriched article without meta passes",
			article: &Article{ID: 42, Processed: StateEnriched},
			wantErr: nil,
		},
		{
			name:    "nil article",
			article: nil,
			wantErr: ErrInvalidArticle,
		},
		{
			name:    "zero id",
			article: &Article{ID: 0},
			wantErr: ErrInvalidArticleID,
		},
		{
			name: "keyword without name",
			article: &Article{
				ID:   42,
				Meta: &ArticleMeta{Keywords: []KeywordFact{{Kind: KindDisease}}},
			},
			wantErr: ErrInvalidKeyword,
		},
		{
			name: "keyword with unknown kind",
			article: &Article{
				ID:   42,
				Meta: &ArticleMeta{Keywords: []KeywordFact{{Name: "x", Kind: 9}}},
			},
			wantErr: ErrUnknownKeywordKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArticle(tt.article)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateArticle() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateArticle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
