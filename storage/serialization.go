// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/acooeaz/core"
)

// Documents are stored as JSON by every backend, so a document written by
// one backend can be copied verbatim into another.

// MarshalDrug serializes a Drug to bytes.
func MarshalDrug(drug *core.Drug) ([]byte, error) {
	return marshal(drug)
}

// UnmarshalDrug deserializes a Drug from bytes.
func UnmarshalDrug(data []byte) (*core.Drug, error) {
	return unmarshal[core.Drug](data)
}

// MarshalArticle serializes an Article to bytes.
func MarshalArticle(article *core.Article) ([]byte, error) {
	return marshal(article)
}

// UnmarshalArticle deserializes an Article from bytes.
func UnmarshalArticle(data []byte) (*core.Article, error) {
	return unmarshal[core.Article](data)
}

// MarshalIndication serializes an Indication to bytes.
// Children are not stored; they are rebuilt from parent codes.
func MarshalIndication(indication *core.Indication) ([]byte, error) {
	return marshal(indication)
}

// UnmarshalIndication deserializes an Indication from bytes.
func UnmarshalIndication(data []byte) (*core.Indication, error) {
	return unmarshal[core.Indication](data)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrSerializationFailed)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
