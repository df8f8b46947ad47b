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


// Package search ranks stored articles against a query embedding.
//
// The Engine asks the store for an over-fetched candidate set, hydrates the
// matching articles and re-applies the year, keyword and similarity filters
// locally before ordering. Ordering is by descending cosine similarity; equal
// scores keep the order the store returned them in. Ranks are 1-based.
//
// Presets holds the canned queries offered by the command line tools.
package search
