package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"flexflow-api/domain"
)

const requestBodyMaxSize = 256 * 1024 // 256 KiB

// Register wires up all API routes on the provided Echo instance. The
// credential routes are only mounted when the authenticator can mint tokens;
// in external-issuer deployments registration and login live at the identity
// provider.
func Register(e *echo.Echo, accounts Accounts, boards Boards, auth Authenticator, logger *log.Logger) {
	if auth.CanIssue() {
		e.POST("/api/auth/register", registerUser(accounts, auth))
		e.POST("/api/auth/login", login(accounts, auth))
	}
	e.GET("/api/auth/me", me(accounts, auth))

	e.GET("/api/boards", getBoards(boards, accounts, auth, logger))
	e.POST("/api/boards", createBoard(boards, accounts, auth))
	e.GET("/api/boards/:id", getBoard(boards, accounts, auth))
	e.GET("/api/boards/:id/lists", getLists(boards, accounts, auth))
	e.POST("/api/boards/:id/lists", createList(boards, accounts, auth))
	e.GET("/api/boards/:id/cards", getCardsByBoard(boards, accounts, auth))

	e.POST("/api/lists/:id/cards", createCard(boards, accounts, auth))
	e.GET("/api/lists/:id/cards", getCardsByList(boards, accounts, auth))

	e.PUT("/api/cards/:id", updateCard(boards, accounts, auth))
	e.DELETE("/api/cards/:id", deleteCard(boards, accounts, auth))

	e.GET("/api/inbox", inbox(boards, accounts, auth))
	e.POST("/api/ai/extract-tasks", extractTasks())
	e.GET("/healthz", healthz())
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ValidationError{Reason: "invalid body"}
	}
	return nil
}

// currentUser runs the request authorization guard: verify the bearer token,
// then resolve the subject to a live user record.
func currentUser(c echo.Context, auth Authenticator, accounts Accounts) (*domain.User, error) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	return accounts.Resolve(c.Request().Context(), userID)
}

func registerUser(accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return httpError(c, err)
		}
		user, err := accounts.Register(c.Request().Context(), req.Email, req.Name, req.Password)
		if err != nil {
			if err == domain.ErrInvalidCredentials {
				// Email collision surfaces as 400 on this route, not 401.
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "email already registered"})
			}
			return httpError(c, err)
		}
		token, err := auth.Issue(user.ID)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse{Token: token, User: user})
	}
}

func login(accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return httpError(c, err)
		}
		user, err := accounts.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return httpError(c, err)
		}
		token, err := auth.Issue(user.ID)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, tokenResponse{Token: token, User: user})
	}
}

func me(accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

func getBoards(boards Boards, accounts Accounts, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		user, authErr := currentUser(c, auth, accounts)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = httpError(c, authErr)
			return err
		}

		fetchStart := time.Now()
		owned, fetchErr := boards.Boards(ctx, user.ID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = httpError(c, fetchErr)
			return err
		}
		metrics.SetBoardsReturned(len(owned))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, owned)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createBoard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		var in domain.BoardCreate
		if err := decodeBody(c, &in); err != nil {
			return httpError(c, err)
		}
		board, err := boards.CreateBoard(c.Request().Context(), user.ID, in)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func getBoard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		board, err := boards.Board(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func getLists(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		lists, err := boards.Lists(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, lists)
	}
}

func createList(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		var in domain.ListCreate
		if err := decodeBody(c, &in); err != nil {
			return httpError(c, err)
		}
		list, err := boards.CreateList(c.Request().Context(), user.ID, c.Param("id"), in)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func createCard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		var in domain.CardCreate
		if err := decodeBody(c, &in); err != nil {
			return httpError(c, err)
		}
		card, err := boards.CreateCard(c.Request().Context(), user.ID, c.Param("id"), in)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

func getCardsByList(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		cards, err := boards.CardsByList(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, cards)
	}
}

func getCardsByBoard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		cards, err := boards.CardsByBoard(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, cards)
	}
}

func updateCard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		var upd domain.CardUpdate
		if err := decodeBody(c, &upd); err != nil {
			return httpError(c, err)
		}
		card, err := boards.UpdateCard(c.Request().Context(), user.ID, c.Param("id"), upd)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

func deleteCard(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		if err := boards.DeleteCard(c.Request().Context(), user.ID, c.Param("id")); err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "card deleted"})
	}
}

func inbox(boards Boards, accounts Accounts, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c, auth, accounts)
		if err != nil {
			return httpError(c, err)
		}
		cards, err := boards.Inbox(c.Request().Context(), user.ID)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, cards)
	}
}

type extractedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// extractTasks is a static stand-in for the AI extraction endpoint. It is
// unauthenticated and carries no real logic.
func extractTasks() echo.HandlerFunc {
	resp := map[string][]extractedTask{
		"tasks": {
			{Title: "Follow up with client", Description: "Send email to confirm project details", Priority: "high"},
			{Title: "Prepare report", Description: "Summarize weekly performance metrics", Priority: "medium"},
			{Title: "Team meeting", Description: "Discuss design updates", Priority: "low"},
		},
	}
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, resp)
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
