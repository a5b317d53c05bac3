package screen

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

type PostForm struct {
	Message string
	Author  string
}

// Posts is the message board: a live list in insertion order plus the compose/edit form.
type Posts struct {
	*listScreen[domain.Post, PostForm]
}

func OpenPosts(ctx context.Context, store repository.DocumentStore, d Deps) (*Posts, error) {
	l, err := openList[domain.Post, PostForm](ctx, store, d, domain.PostsCollection, repository.Query{},
		func(p domain.Post) string { return p.ID })
	if err != nil {
		return nil, err
	}
	return &Posts{listScreen: l}, nil
}

func (p *Posts) Create(ctx context.Context, f PostForm) error {
	p.setDraft(f)
	var post domain.Post
	return p.run(ctx, "",
		func() (err error) {
			post, err = domain.NewPost(f.Message, f.Author)
			return err
		},
		"failed to publish post",
		Notice{Kind: NoticeSuccess, Message: "post published"},
		func(ctx context.Context) error {
			_, err := p.store.Create(ctx, p.collection, post.Fields())
			return err
		},
		p.resetDraft,
	)
}

// BeginEdit fills the form from the listed post. Anonymous posts start with a blank author.
func (p *Posts) BeginEdit(id string) error {
	return p.beginEdit(id, func(post domain.Post) PostForm {
		return PostForm{Message: post.Message, Author: post.EditableAuthor()}
	})
}

func (p *Posts) SaveEdit(ctx context.Context, f PostForm) error {
	target, err := p.editTarget()
	if err != nil {
		return err
	}
	p.setDraft(f)
	var post domain.Post
	return p.run(ctx, target,
		func() (err error) {
			post, err = domain.NewPost(f.Message, f.Author)
			return err
		},
		"failed to update post",
		Notice{Kind: NoticeSuccess, Message: "post updated"},
		func(ctx context.Context) error {
			return p.store.Update(ctx, p.collection, target, post.Fields())
		},
		p.resetDraft,
	)
}

func (p *Posts) Delete(ctx context.Context, id string) error {
	return p.run(ctx, "", nil,
		"failed to delete post",
		Notice{Kind: NoticeDeleted, Message: "post deleted"},
		func(ctx context.Context) error {
			return p.store.Delete(ctx, p.collection, id)
		},
		nil,
	)
}
