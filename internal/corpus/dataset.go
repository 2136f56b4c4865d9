package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cbroglie/mustache"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultDatasetFile is the dataset path used when none is configured.
const DefaultDatasetFile = "librescript_dataset.txt"

// ErrNoPosts is returned when the backend yields no posts to train on.
var ErrNoPosts = errors.New("no posts retrieved from LibreScript API")

// postTemplate renders one post with its answers. Every section tag shares
// its line with text so no line is dropped as standalone.
var postTemplate = "# Question: {{{title}}}\n" +
	"# Content: {{{content}}}\n" +
	"# Language: {{{language}}}\n" +
	"# Status: {{{status}}}\n\n" +
	"{{#hasComments}}# Answers:\n" +
	"{{#comments}}## Answer by user {{{userId}}}:\n{{{content}}}\n\n" +
	"{{#replies}}### Reply by user {{{userId}}}:\n{{{content}}}\n\n" +
	"{{/replies}}{{/comments}}{{/hasComments}}{{{separator}}}"

var separator = "\n" + strings.Repeat("=", 80) + "\n\n"

// Stats describes a built dataset.
type Stats struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Replies  int `json:"replies"`
	Chars    int `json:"chars"`
	Tokens   int `json:"tokens"`
}

// BuildDataset renders every post and its comments to w. A failure to list
// comments for one post is logged and the post is written without answers.
func BuildDataset(ctx context.Context, src Source, w io.Writer) (Stats, error) {
	posts, err := src.ListPosts(ctx)
	if err != nil {
		return Stats{}, err
	}
	if len(posts) == 0 {
		return Stats{}, ErrNoPosts
	}
	log.Info().Int("posts", len(posts)).Msg("retrieved posts from LibreScript")

	tmpl, err := mustache.ParseString(postTemplate)
	if err != nil {
		return Stats{}, fmt.Errorf("parse dataset template: %w", err)
	}
	st := Stats{Posts: len(posts)}
	blocks := make([]string, 0, len(posts))
	for _, p := range posts {
		comments, err := src.ListComments(ctx, p.ID)
		if err != nil {
			if ctx.Err() != nil {
				return Stats{}, ctx.Err()
			}
			log.Warn().Err(err).Str("post", p.ID).Msg("skipping comments")
			comments = nil
		}
		block, err := tmpl.Render(postContext(p, comments))
		if err != nil {
			return Stats{}, fmt.Errorf("render post %s: %w", p.ID, err)
		}
		st.Comments += len(comments)
		for _, c := range comments {
			st.Replies += len(c.Replies)
		}
		blocks = append(blocks, block)
	}

	text := strings.Join(blocks, "\n")
	if _, err := io.WriteString(w, text); err != nil {
		return Stats{}, err
	}
	st.Chars = utf8.RuneCountInString(text)
	st.Tokens = countTokens(text)
	return st, nil
}

// WriteDataset builds the dataset into path, replacing it only once the
// new content is complete.
func WriteDataset(ctx context.Context, src Source, path string) (Stats, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Stats{}, err
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*")
	if err != nil {
		return Stats{}, err
	}
	defer os.Remove(tmp.Name())
	st, err := BuildDataset(ctx, src, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Stats{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Stats{}, err
	}
	log.Info().Str("file", path).Int("chars", st.Chars).Int("tokens", st.Tokens).Msg("training data saved")
	return st, nil
}

func postContext(p Post, comments []Comment) map[string]any {
	cs := make([]map[string]any, 0, len(comments))
	for _, c := range comments {
		rs := make([]map[string]any, 0, len(c.Replies))
		for _, r := range c.Replies {
			rs = append(rs, map[string]any{"userId": r.UserID, "content": r.Content})
		}
		cs = append(cs, map[string]any{"userId": c.UserID, "content": c.Content, "replies": rs})
	}
	return map[string]any{
		"title":       p.Title,
		"content":     p.Content,
		"language":    p.Language,
		"status":      p.Status,
		"hasComments": len(cs) > 0,
		"comments":    cs,
		"separator":   separator,
	}
}

// countTokens counts GPT-2 tokens. It returns 0 if the encoding is unavailable.
func countTokens(text string) int {
	enc, err := tokenizer.Get(tokenizer.R50kBase)
	if err != nil {
		log.Debug().Err(err).Msg("token count unavailable")
		return 0
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}
