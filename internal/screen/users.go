package screen

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

type UserForm struct {
	Name  string
	Phone string
	Email string
}

// Users manages contacts with a single form that creates, or updates the user being edited.
type Users struct {
	*listScreen[domain.User, UserForm]
}

func OpenUsers(ctx context.Context, store repository.DocumentStore, d Deps) (*Users, error) {
	l, err := openList[domain.User, UserForm](ctx, store, d, domain.UsersCollection, repository.Query{},
		func(u domain.User) string { return u.ID })
	if err != nil {
		return nil, err
	}
	return &Users{listScreen: l}, nil
}

func (u *Users) Save(ctx context.Context, f UserForm) error {
	u.setDraft(f)
	user := domain.User{Name: f.Name, Phone: f.Phone, Email: f.Email}

	target := u.form.editing()
	ok := Notice{Kind: NoticeSuccess, Message: "user created"}
	mutate := func(ctx context.Context) error {
		_, err := u.store.Create(ctx, u.collection, user.Fields())
		return err
	}
	if target != "" {
		ok.Message = "user updated"
		mutate = func(ctx context.Context) error {
			return u.store.Update(ctx, u.collection, target, user.Fields())
		}
	}

	return u.run(ctx, target, user.Validate, "could not save the user", ok, mutate, u.resetDraft)
}

func (u *Users) BeginEdit(id string) error {
	return u.beginEdit(id, func(user domain.User) UserForm {
		return UserForm{Name: user.Name, Phone: user.Phone, Email: user.Email}
	})
}

func (u *Users) Delete(ctx context.Context, id string) error {
	return u.run(ctx, "", nil,
		"could not delete the user",
		Notice{Kind: NoticeDeleted, Message: "user deleted"},
		func(ctx context.Context) error {
			return u.store.Delete(ctx, u.collection, id)
		},
		nil,
	)
}
