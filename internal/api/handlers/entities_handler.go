package handlers

import (
	"net/http"

	"example.com/tableside/internal/models"
	"example.com/tableside/internal/repos"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntityHandler exposes uniform CRUD over the plain entity collections:
// menu items, reservations, customers, promotions, automations and social
// posts.
type EntityHandler struct {
	menuItems    *repos.Repo[models.MenuItem]
	reservations *repos.Repo[models.Reservation]
	customers    *repos.Repo[models.Customer]
	promotions   *repos.Repo[models.Promotion]
	automations  *repos.Repo[models.Automation]
	posts        *repos.Repo[models.SocialPost]
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(
	menuItems *repos.Repo[models.MenuItem],
	reservations *repos.Repo[models.Reservation],
	customers *repos.Repo[models.Customer],
	promotions *repos.Repo[models.Promotion],
	automations *repos.Repo[models.Automation],
	posts *repos.Repo[models.SocialPost],
) *EntityHandler {
	return &EntityHandler{
		menuItems:    menuItems,
		reservations: reservations,
		customers:    customers,
		promotions:   promotions,
		automations:  automations,
		posts:        posts,
	}
}

// RegisterRoutes registers one CRUD group per collection
func (h *EntityHandler) RegisterRoutes(router *gin.Engine) {
	registerEntityRoutes(router, "menu-items", h.menuItems, func(m *models.MenuItem, id string) { m.ID = id }, func(m models.MenuItem) string { return m.ID })
	registerEntityRoutes(router, "reservations", h.reservations, func(r *models.Reservation, id string) { r.ID = id }, func(r models.Reservation) string { return r.ID })
	registerEntityRoutes(router, "customers", h.customers, func(c *models.Customer, id string) { c.ID = id }, func(c models.Customer) string { return c.ID })
	registerEntityRoutes(router, "promotions", h.promotions, func(p *models.Promotion, id string) { p.ID = id }, func(p models.Promotion) string { return p.ID })
	registerEntityRoutes(router, "automations", h.automations, func(a *models.Automation, id string) { a.ID = id }, func(a models.Automation) string { return a.ID })
	registerEntityRoutes(router, "social-posts", h.posts, func(p *models.SocialPost, id string) { p.ID = id }, func(p models.SocialPost) string { return p.ID })
}

func registerEntityRoutes[E repos.Entity](
	router *gin.Engine,
	name string,
	repo *repos.Repo[E],
	setID func(*E, string),
	getID func(E) string,
) {
	g := router.Group("/api/v1/" + name)

	g.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, repo.GetAll())
	})

	g.POST("", func(c *gin.Context) {
		var e E
		if err := c.ShouldBindJSON(&e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if getID(e) == "" {
			setID(&e, uuid.NewString())
		}
		repo.Add(c.Request.Context(), e)
		c.JSON(http.StatusCreated, e)
	})

	g.PUT("/:id", func(c *gin.Context) {
		var e E
		if err := c.ShouldBindJSON(&e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setID(&e, c.Param("id"))
		repo.Update(c.Request.Context(), e)
		c.JSON(http.StatusOK, e)
	})

	g.DELETE("/:id", func(c *gin.Context) {
		repo.Delete(c.Request.Context(), c.Param("id"))
		c.Status(http.StatusNoContent)
	})
}
