// Package weaviate implements catalog.Catalog on top of the official Weaviate
// Go client.
//
// Collections map to classes. Scroll uses the object id cursor, and Search
// issues a nearVector query with a where filter on key, tempo, and
// found_stems. The similarity threshold becomes a maximum cosine distance and
// scores are reported as 1 - distance. The class schema is read once per
// class to learn which properties make up the payload.
package weaviate
