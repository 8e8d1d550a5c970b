package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
)

var ErrPostNotFound = errors.New("post not found")
var ErrNotPostOwner = errors.New("post belongs to a different user")

// PostService owns the sample business entity. Writes go to Postgres and are
// mirrored into Elasticsearch on a best-effort basis; search never blocks a
// write path.
type PostService struct {
	Posts        repository.PostRepository
	ES           *elasticsearch.Client
	ESPostsIndex string
	Logger       *logrus.Logger
}

func NewPostService(posts repository.PostRepository, es *elasticsearch.Client, index string, logger *logrus.Logger) *PostService {
	return &PostService{Posts: posts, ES: es, ESPostsIndex: index, Logger: logger}
}

type PostInput struct {
	Title     string
	Content   string
	Published bool
}

func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (*entity.Post, error) {
	p := &entity.Post{
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
	}
	if err := s.Posts.Create(ctx, p); err != nil {
		return nil, err
	}
	_ = s.indexPost(ctx, p)
	return p, nil
}

func (s *PostService) Get(ctx context.Context, id int64) (*entity.Post, error) {
	p, err := s.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Posts.ListByUser(ctx, userID, limit, offset)
}

func (s *PostService) Update(ctx context.Context, userID string, id int64, in PostInput) (*entity.Post, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Title = in.Title
	p.Content = in.Content
	p.Published = in.Published
	if err := s.Posts.Update(ctx, p); err != nil {
		return nil, err
	}
	_ = s.indexPost(ctx, p)
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.Posts.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteIndexed(ctx, id)
	return nil
}

func (s *PostService) owned(ctx context.Context, userID string, id int64) (*entity.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotPostOwner
	}
	return p, nil
}

func (s *PostService) indexPost(ctx context.Context, p *entity.Post) error {
	if s.ES == nil || s.ESPostsIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         p.ID,
		"user_id":    p.UserID,
		"title":      p.Title,
		"content":    p.Content,
		"published":  p.Published,
		"created_at": p.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": p.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESPostsIndex, DocumentID: strconv.FormatInt(p.ID, 10), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("post_id", p.ID).Warn("es index response error")
	}
	return nil
}

func (s *PostService) deleteIndexed(ctx context.Context, id int64) {
	if s.ES == nil || s.ESPostsIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESPostsIndex, DocumentID: strconv.FormatInt(id, 10)}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("post_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// Search performs a multi_match over title and content, restricted to
// published posts.
func (s *PostService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESPostsIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "content"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"published": true},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESPostsIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
