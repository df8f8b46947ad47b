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


// Package ai provides abstractions for the external AI services used by fraudlens.
//
// The engine depends on two interfaces:
//
//   - Embedder: generates vector embeddings from text
//   - Predictor: the offline-trained classifier applied to embeddings
//
// AIProvider groups the embedder with its lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embeddings through langchaingo
//   - ai/mock: test doubles for unit testing without external services
//   - mlmodel: a linear Predictor loaded from a weights file
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockPredictor) return concrete types so tests can inject behavior
// and assert call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "zelle unauthorized transfer")
package ai
