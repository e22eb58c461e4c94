package tracker

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ControllerRoutes holds the route paths, relative to the group the
// controller is registered on.
type ControllerRoutes struct {
	Signup      string
	Token       string
	Users       string
	Projects    string
	Tasks       string
	HealthCheck string
}

// Controller exposes the tracker over HTTP
type Controller struct {
	Debug        bool
	Logger       Logger
	Routes       *ControllerRoutes
	ContextKey   string
	PageSize     int
	Signup       *RequestSignupHandler
	Exchange     *ExchangeTokenHandler
	Users        *UserDirectory
	Projects     *ProjectService
	Tasks        *TaskService
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = normalizeLogger(logger)
		c.ErrorHandler = NewErrorHandler(c.Logger)
		return c
	}
}

func WithPageSize(size int) ControllerOption {
	return func(c *Controller) *Controller {
		if size > 0 {
			c.PageSize = size
		}
		return c
	}
}

func WithContextKey(key string) ControllerOption {
	return func(c *Controller) *Controller {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithCommandHandlers(signup *RequestSignupHandler, exchange *ExchangeTokenHandler) ControllerOption {
	return func(c *Controller) *Controller {
		c.Signup = signup
		c.Exchange = exchange
		return c
	}
}

func WithResourceServices(users *UserDirectory, projects *ProjectService, tasks *TaskService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Users = users
		c.Projects = projects
		c.Tasks = tasks
		return c
	}
}

// WithControllerDebug logs decoded request payloads.
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:     defaultLogger(),
		ContextKey: DefaultContextKey,
		PageSize:   DefaultPageSize,
		Routes: &ControllerRoutes{
			Signup:      "/auth/signup",
			Token:       "/auth/token",
			Users:       "/users",
			Projects:    "/projects",
			Tasks:       "/tasks",
			HealthCheck: "/healthz",
		},
	}
	c.ErrorHandler = NewErrorHandler(c.Logger)

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Signup == nil {
		panic("Missing RequestSignupHandler in tracker controller...")
	}

	if c.Exchange == nil {
		panic("Missing ExchangeTokenHandler in tracker controller...")
	}

	if c.Users == nil || c.Projects == nil || c.Tasks == nil {
		panic("Missing resource services in tracker controller...")
	}

	return c
}

// RegisterRoutes mounts the controller. resolve is the middleware that
// turns bearer tokens into request claims, see PrincipalMiddleware.
func RegisterRoutes[T any](app router.Router[T], c *Controller, resolve router.MiddlewareFunc) {
	r := c.Routes

	app.Get(r.HealthCheck, c.Health).SetName("health.get")

	app.Post(r.Signup, c.SignupPost).SetName("auth.signup.post")
	app.Post(r.Token, c.TokenPost).SetName("auth.token.post")

	app.Get(r.Users, c.UsersIndex, resolve).SetName("users.index")
	app.Post(r.Users, c.UsersCreate, resolve).SetName("users.create")
	app.Get(r.Users+"/:username", c.UserShow, resolve).SetName("users.show")
	app.Patch(r.Users+"/:username", c.UserUpdate, resolve).SetName("users.update")
	app.Delete(r.Users+"/:username", c.UserDelete, resolve).SetName("users.delete")

	app.Get(r.Projects, c.ProjectsIndex, resolve).SetName("projects.index")
	app.Post(r.Projects, c.ProjectsCreate, resolve).SetName("projects.create")
	app.Get(r.Projects+"/:id", c.ProjectShow, resolve).SetName("projects.show")
	app.Patch(r.Projects+"/:id", c.ProjectUpdate, resolve).SetName("projects.update")
	app.Delete(r.Projects+"/:id", c.ProjectDelete, resolve).SetName("projects.delete")
	app.Get(r.Projects+"/:id/tasks", c.ProjectTasksIndex, resolve).SetName("projects.tasks.index")
	app.Post(r.Projects+"/:id/tasks", c.ProjectTasksCreate, resolve).SetName("projects.tasks.create")

	app.Get(r.Tasks+"/:id", c.TaskShow, resolve).SetName("tasks.show")
	app.Patch(r.Tasks+"/:id", c.TaskUpdate, resolve).SetName("tasks.update")
}

func (c *Controller) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) SignupPost(ctx router.Context) error {
	payload := new(RequestSignupMessage)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	res, err := c.Signup.Execute(ctx.Context(), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, res)
}

func (c *Controller) TokenPost(ctx router.Context) error {
	payload := new(ExchangeTokenMessage)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	res, err := c.Exchange.Execute(ctx.Context(), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, res)
}

func (c *Controller) UsersIndex(ctx router.Context) error {
	req, err := c.pageRequest(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	page, err := c.Users.List(ctx.Context(), c.principal(ctx), req)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, MapPage(page, NewUserResponse).WithLinks(ctx.Path(), req))
}

func (c *Controller) UsersCreate(ctx router.Context) error {
	payload := new(CreateUserPayload)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.Users.Create(ctx.Context(), c.principal(ctx), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, NewUserResponse(user))
}

func (c *Controller) UserShow(ctx router.Context) error {
	user, err := c.Users.Profile(ctx.Context(), c.principal(ctx), ctx.Param("username"))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewUserResponse(user))
}

func (c *Controller) UserUpdate(ctx router.Context) error {
	payload := new(ProfileUpdate)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	user, err := c.Users.UpdateProfile(ctx.Context(), c.principal(ctx), ctx.Param("username"), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewUserResponse(user))
}

func (c *Controller) UserDelete(ctx router.Context) error {
	if err := c.Users.Remove(ctx.Context(), c.principal(ctx), ctx.Param("username")); err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) ProjectsIndex(ctx router.Context) error {
	req, err := c.pageRequest(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	page, err := c.Projects.List(ctx.Context(), c.principal(ctx), req)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, MapPage(page, NewProjectResponse).WithLinks(ctx.Path(), req))
}

func (c *Controller) ProjectsCreate(ctx router.Context) error {
	payload := new(ProjectPayload)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	project, err := c.Projects.Create(ctx.Context(), c.principal(ctx), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, NewProjectResponse(project))
}

func (c *Controller) ProjectShow(ctx router.Context) error {
	project, err := c.Projects.Get(ctx.Context(), c.principal(ctx), ctx.Param("id"))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewProjectResponse(project))
}

func (c *Controller) ProjectUpdate(ctx router.Context) error {
	payload := new(ProjectUpdate)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	project, err := c.Projects.Update(ctx.Context(), c.principal(ctx), ctx.Param("id"), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewProjectResponse(project))
}

func (c *Controller) ProjectDelete(ctx router.Context) error {
	if err := c.Projects.Remove(ctx.Context(), c.principal(ctx), ctx.Param("id")); err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) ProjectTasksIndex(ctx router.Context) error {
	req, err := c.pageRequest(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	page, err := c.Projects.ListTasks(ctx.Context(), c.principal(ctx), ctx.Param("id"), req)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, MapPage(page, NewTaskResponse).WithLinks(ctx.Path(), req))
}

func (c *Controller) ProjectTasksCreate(ctx router.Context) error {
	payload := new(TaskPayload)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	task, err := c.Projects.CreateTask(ctx.Context(), c.principal(ctx), ctx.Param("id"), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, NewTaskResponse(task))
}

func (c *Controller) TaskShow(ctx router.Context) error {
	task, err := c.Tasks.Get(ctx.Context(), c.principal(ctx), ctx.Param("id"))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewTaskResponse(task))
}

func (c *Controller) TaskUpdate(ctx router.Context) error {
	payload := new(TaskUpdate)
	if err := c.bind(ctx, payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	task, err := c.Tasks.Update(ctx.Context(), c.principal(ctx), ctx.Param("id"), *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewTaskResponse(task))
}

func (c *Controller) principal(ctx router.Context) Principal {
	return PrincipalFromRouterContext(ctx, c.ContextKey)
}

func (c *Controller) bind(ctx router.Context, payload any) error {
	if err := ctx.Bind(payload); err != nil {
		return NewFieldError("non_field_errors", "malformed request body")
	}
	if c.Debug {
		c.Logger.Debug(fmt.Sprintf("payload %s %s", ctx.Method(), ctx.Path()), "body", print.MaybePrettyJSON(payload))
	}
	return nil
}

// pageRequest reads ?page and ?search. A page that is not a positive
// integer is a NotFoundError.
func (c *Controller) pageRequest(ctx router.Context) (PageRequest, error) {
	req := PageRequest{
		Page:   1,
		Size:   c.PageSize,
		Search: strings.TrimSpace(ctx.Query("search", "")),
	}
	if raw := strings.TrimSpace(ctx.Query("page", "")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, NewNotFoundError("page", map[string]any{"page": raw})
		}
		req.Page = n
	}
	return req, nil
}
