package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chikamso/portfolio/internal/cli/ui"
	"github.com/chikamso/portfolio/internal/store"
	"github.com/chikamso/portfolio/internal/web/auth"
)

// prompter asks for values that are not given as flags
type prompter interface {
	Email() (string, error)
	Password() (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Email() (string, error) {
	var email string
	err := survey.AskOne(&survey.Input{Message: "Email:"}, &email,
		survey.WithValidator(survey.Required),
		survey.WithValidator(func(v interface{}) error {
			_, err := mail.ParseAddress(fmt.Sprint(v))
			return err
		}),
	)
	return email, err
}

func (surveyPrompter) Password() (string, error) {
	var answers struct {
		Password string
		Confirm  string
	}
	questions := []*survey.Question{
		{
			Name:   "password",
			Prompt: &survey.Password{Message: "Password:"},
			Validate: func(v interface{}) error {
				if len(fmt.Sprint(v)) < auth.MinPasswordLength {
					return auth.ErrPasswordTooShort
				}
				return nil
			},
		},
		{
			Name:     "confirm",
			Prompt:   &survey.Password{Message: "Repeat password:"},
			Validate: survey.Required,
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return "", err
	}
	if answers.Password != answers.Confirm {
		return "", errors.New("passwords do not match")
	}
	return answers.Password, nil
}

func newUserCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage sign-in accounts",
	}

	var email, id string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account. The password is always read interactively.

The admin area only accepts the user whose id matches admin.user_id
(ADMIN_USER_ID). Pass --id to create that user with a known id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" {
				if _, err := uuid.Parse(id); err != nil {
					return fmt.Errorf("--id must be a uuid: %w", err)
				}
			}
			if email == "" {
				var err error
				if email, err = opts.prompt.Email(); err != nil {
					return err
				}
			}
			if _, err := mail.ParseAddress(email); err != nil {
				return fmt.Errorf("invalid email %q: %w", email, err)
			}
			password, err := opts.prompt.Password()
			if err != nil {
				return err
			}

			return withDatabase(cmd, opts, func(ctx context.Context, db *sql.DB, p *ui.Printer) error {
				return createUser(ctx, store.New(db), p, id, email, password)
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&id, "id", "", "user id (uuid), generated when empty")

	cmd.AddCommand(create)
	return cmd
}

type userCreator interface {
	CreateUser(ctx context.Context, u *store.User) error
}

func createUser(ctx context.Context, users userCreator, p *ui.Printer, id, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	u := &store.User{ID: id, Email: email, PasswordHash: hash}
	if err := users.CreateUser(ctx, u); err != nil {
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("a user with email %s already exists", email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	p.Success("Created user %s", u.Email)
	p.KeyValues([2]string{"ID", u.ID})
	p.Info("Set ADMIN_USER_ID=%s to make this user the administrator", u.ID)
	return nil
}
