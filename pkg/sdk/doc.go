// Package visiolingua embeds the multilingual retrieval and storytelling
// engine in a Go program, without the HTTP API in front of it.
//
// Records live in Redis or Valkey with the search module, or in memory for
// tests and small tools. Every call is scoped to one user.
//
//	client, _ := visiolingua.New(ctx,
//	    visiolingua.WithRedis("localhost:6379", ""),
//	    visiolingua.WithEmbedder(textEmbedder, 384),
//	    visiolingua.WithClipEmbedder(clipEmbedder, 512),
//	    visiolingua.WithGenerator(llm),
//	)
//	defer client.Close()
//
//	id, _ := client.Upload(ctx, visiolingua.Upload{UserID: "u1", Text: "a red bicycle"})
//	ans, _ := client.Query(ctx, visiolingua.Query{UserID: "u1", Text: "bicycle", Lang: "es"})
//	story := client.Story(ctx, visiolingua.StoryRequest{UserID: "u1", Theme: "friendship", ContentID: id})
package visiolingua
