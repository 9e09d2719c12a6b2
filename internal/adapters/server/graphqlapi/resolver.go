package graphqlapi

import (
	"context"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/domain"
)

// resolver is the root query and mutation resolver.
type resolver struct {
	boards   common.BoardDirectory
	accounts common.AccountService
}

type taskInput struct {
	Title       string
	Description string
}

type columnInput struct {
	Name  string
	Tasks *[]taskInput
}

func (in taskInput) toDomain() domain.Task {
	return domain.Task{Title: in.Title, Description: in.Description}
}

func (r *resolver) Boards(ctx context.Context) ([]*boardResolver, error) {
	boards, err := r.boards.ListBoards(ctx)
	if err != nil {
		return nil, resolverError(err)
	}
	out := make([]*boardResolver, 0, len(boards))
	for _, b := range boards {
		out = append(out, &boardResolver{board: b})
	}
	return out, nil
}

func (r *resolver) CreateBoard(ctx context.Context, args struct {
	Name        string
	Description string
	Columns     []columnInput
}) (*boardResolver, error) {
	columns := make([]domain.Column, 0, len(args.Columns))
	for _, in := range args.Columns {
		column := domain.Column{Name: in.Name, Tasks: []domain.Task{}}
		if in.Tasks != nil {
			for _, task := range *in.Tasks {
				column.Tasks = append(column.Tasks, task.toDomain())
			}
		}
		columns = append(columns, column)
	}
	board, err := r.boards.CreateBoard(ctx, common.CreateBoardRequest{
		Name:        args.Name,
		Description: args.Description,
		Columns:     columns,
	})
	if err != nil {
		return nil, resolverError(err)
	}
	return &boardResolver{board: board}, nil
}

func (r *resolver) AddTaskToColumn(ctx context.Context, args struct {
	BoardID    graphql.ID
	ColumnName string
	Task       taskInput
}) (*boardResolver, error) {
	board, err := r.boards.AddTaskToColumn(ctx, common.AddTaskRequest{
		BoardID:    string(args.BoardID),
		ColumnName: args.ColumnName,
		Task:       args.Task.toDomain(),
	})
	if err != nil {
		return nil, resolverError(err)
	}
	return &boardResolver{board: board}, nil
}

type credentialsArgs struct {
	Email    string
	Password string
}

func (r *resolver) Login(ctx context.Context, args credentialsArgs) (*authPayloadResolver, error) {
	session, err := r.accounts.Login(ctx, args.Email, args.Password)
	if err != nil {
		return nil, resolverError(err)
	}
	return &authPayloadResolver{token: session.Token}, nil
}

func (r *resolver) Register(ctx context.Context, args credentialsArgs) (*authPayloadResolver, error) {
	session, err := r.accounts.Register(ctx, args.Email, args.Password)
	if err != nil {
		return nil, resolverError(err)
	}
	return &authPayloadResolver{token: session.Token}, nil
}

type boardResolver struct {
	board domain.Board
}

func (b *boardResolver) ID() graphql.ID      { return graphql.ID(b.board.ID) }
func (b *boardResolver) Name() string        { return b.board.Name }
func (b *boardResolver) Description() string { return b.board.Description }

func (b *boardResolver) Columns() []*columnResolver {
	out := make([]*columnResolver, 0, len(b.board.Columns))
	for _, c := range b.board.Columns {
		out = append(out, &columnResolver{column: c})
	}
	return out
}

type columnResolver struct {
	column domain.Column
}

func (c *columnResolver) Name() string { return c.column.Name }

func (c *columnResolver) Tasks() []*taskResolver {
	out := make([]*taskResolver, 0, len(c.column.Tasks))
	for _, t := range c.column.Tasks {
		out = append(out, &taskResolver{task: t})
	}
	return out
}

type taskResolver struct {
	task domain.Task
}

func (t *taskResolver) Title() string       { return t.task.Title }
func (t *taskResolver) Description() string { return t.task.Description }

type authPayloadResolver struct {
	token string
}

func (a *authPayloadResolver) Token() string { return a.token }

// gqlError flattens joined transport errors into one GraphQL message.
type gqlError struct {
	message string
	err     error
}

func (e *gqlError) Error() string { return e.message }
func (e *gqlError) Unwrap() error { return e.err }

func resolverError(err error) error {
	if err == nil {
		return nil
	}
	return &gqlError{message: strings.ReplaceAll(err.Error(), "\n", ": "), err: err}
}
