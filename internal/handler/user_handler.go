package handler

import (
	"net/http"
	"time"

	"fleet-service/internal/hierarchy"
	"fleet-service/internal/model"
	"fleet-service/pkg/database"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// trackingInfo is the live presence snippet attached to driver records in
// listing responses.
type trackingInfo struct {
	Status        string               `json:"status"`
	Location      model.Location       `json:"location"`
	RouteProgress *model.RouteProgress `json:"routeProgress"`
}

type userView struct {
	model.User
	Tracking *trackingInfo `json:"tracking,omitempty"`
}

// withTracking attaches tracking snapshots to driver users with a single
// batched lookup.
func withTracking(users []model.User) ([]userView, error) {
	driverIDs := make([]uint, 0, len(users))
	for _, u := range users {
		if u.TypeUser == model.RoleDriver {
			driverIDs = append(driverIDs, u.ID)
		}
	}

	byUser := make(map[uint]model.Tracking, len(driverIDs))
	if len(driverIDs) > 0 {
		var records []model.Tracking
		if err := database.GetDB().Where("user_id IN ?", driverIDs).Find(&records).Error; err != nil {
			return nil, err
		}
		for _, rec := range records {
			byUser[rec.UserID] = rec
		}
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		view := userView{User: u}
		if rec, ok := byUser[u.ID]; ok {
			progress := rec.RouteProgress.Data()
			view.Tracking = &trackingInfo{
				Status:        rec.Status,
				Location:      rec.Location.Data(),
				RouteProgress: &progress,
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// GetUsers lists the users visible to the requesting user under the role
// scope rules.
func GetUsers(c echo.Context) error {
	log := logger.FromContext(c)

	requestingUserID := c.QueryParam("requestingUserId")
	if requestingUserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "requestingUserId is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var requester model.User
	if err := database.GetDB().First(&requester, requestingUserID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	filter, err := hierarchy.ScopeFilter(database.GetDB(), &requester, visibilityPolicy())
	if err != nil {
		log.Error("Failed to build scope filter",
			zap.String("role", requester.TypeUser), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	var users []model.User
	if err := database.GetDB().Scopes(filter).Preload("Role").Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	views, err := withTracking(users)
	if err != nil {
		log.Error("Failed to load tracking records", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	return c.JSON(http.StatusOK, views)
}

// GetUsersAdmin lists all Admin and Distributor accounts.
func GetUsersAdmin(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	err := database.GetDB().
		Where("type_user IN ?", []string{model.RoleAdmin, model.RoleDistributor}).
		Preload("Role").
		Find(&users).Error
	if err != nil {
		log.Error("Failed to list admin users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	return c.JSON(http.StatusOK, users)
}

// GetUsersDriver lists the drivers directly under the given superior
// account, each with its tracking snapshot.
func GetUsersDriver(c echo.Context) error {
	log := logger.FromContext(c)

	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email parameter is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	err := database.GetDB().
		Where("type_user = ? AND superior_account = ?", model.RoleDriver, email).
		Preload("Role").
		Find(&users).Error
	if err != nil {
		log.Error("Failed to list drivers", zap.String("superior", email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	views, err := withTracking(users)
	if err != nil {
		log.Error("Failed to load tracking records", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	return c.JSON(http.StatusOK, views)
}

func GetUserByID(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := database.GetDB().Preload("Role").First(&user, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	if user.TypeUser == model.RoleDriver {
		views, err := withTracking([]model.User{user})
		if err == nil && len(views) == 1 && views[0].Tracking != nil {
			return c.JSON(http.StatusOK, views[0])
		}
	}

	return c.JSON(http.StatusOK, user)
}

// CreateUser registers a new account after the full validation chain:
// unique email, known creator, role-creation permission, superior
// resolution and the circular-reference guard.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		SuperiorAccount *string `json:"superior_account"`
		TypeUser        string  `json:"type_user"`
		Name            string  `json:"name"`
		Email           string  `json:"email"`
		Password        string  `json:"password"`
		Phone           string  `json:"phone"`
		RoleID          *uint   `json:"role_id"`
		CreatedByID     *uint   `json:"created_by_id"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email already exists"})
	}

	if req.CreatedByID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "created_by_id is required"})
	}
	var creator model.User
	if err := db.First(&creator, *req.CreatedByID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "creator user not found"})
	}

	if !hierarchy.CanCreateRole(creator.TypeUser, req.TypeUser) {
		prometheus.RecordAPIError("role_not_allowed")
		return c.JSON(http.StatusForbidden, echo.Map{
			"message": "a " + creator.TypeUser + " cannot create users of type " + req.TypeUser,
			"allowed": hierarchy.AllowedRoles(creator.TypeUser),
		})
	}

	// SuperAdmins may create root Distributors and Admins; everyone else
	// parents new accounts under themselves.
	var superior *string
	if creator.TypeUser == model.RoleSuperAdmin {
		switch req.TypeUser {
		case model.RoleDistributor, model.RoleAdmin:
			superior = req.SuperiorAccount
		default:
			if req.SuperiorAccount == nil || *req.SuperiorAccount == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"message": req.TypeUser + " must have a superior account",
				})
			}
			superior = req.SuperiorAccount
		}
	} else {
		superior = &creator.Email
	}

	if superior != nil && *superior != "" {
		dir := hierarchy.NewDirectory(db)
		if err := hierarchy.ValidateNoCircularReference(dir, *superior, req.Email); err != nil {
			prometheus.RecordAPIError("circular_reference")
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		}
	}

	roleID, err := resolveRoleID(req.RoleID, req.TypeUser)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid role"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to create user"})
	}

	user := model.User{
		SuperiorAccount: superior,
		TypeUser:        req.TypeUser,
		Name:            req.Name,
		Email:           req.Email,
		Password:        string(hashed),
		Phone:           req.Phone,
		RoleID:          roleID,
		CreatedByID:     req.CreatedByID,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prometheus.RecordUserOperation("create")
	log.Info("User created",
		zap.String("email", user.Email),
		zap.String("type", user.TypeUser),
		zap.String("superior", user.Superior()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user created successfully",
		"user": echo.Map{
			"id":               user.ID,
			"email":            user.Email,
			"type_user":        user.TypeUser,
			"superior_account": user.SuperiorAccount,
		},
	})
}

// resolveRoleID returns the explicit role when given, otherwise it maps
// the user type onto the roles table, seeding the row on first use.
func resolveRoleID(explicit *uint, typeUser string) (uint, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if !model.IsKnownRole(typeUser) {
		return 0, hierarchy.ErrUnknownRole
	}
	var role model.Role
	err := database.GetDB().Where(model.Role{Name: typeUser}).FirstOrCreate(&role).Error
	if err != nil {
		return 0, err
	}
	return role.ID, nil
}

func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var user model.User
	if err := database.GetDB().First(&user, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	var req struct {
		SuperiorAccount *string `json:"superior_account"`
		TypeUser        *string `json:"type_user"`
		Name            *string `json:"name"`
		Email           *string `json:"email"`
		Password        *string `json:"password"`
		Phone           *string `json:"phone"`
		RoleID          *uint   `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.SuperiorAccount != nil {
		if *req.SuperiorAccount != "" {
			dir := hierarchy.NewDirectory(database.GetDB())
			if err := hierarchy.ValidateNoCircularReference(dir, *req.SuperiorAccount, user.Email); err != nil {
				prometheus.RecordAPIError("circular_reference")
				return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
			}
		}
		updates["superior_account"] = req.SuperiorAccount
	}
	if req.TypeUser != nil {
		updates["type_user"] = *req.TypeUser
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.RoleID != nil {
		updates["role_id"] = *req.RoleID
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update user"})
		}
		updates["password"] = string(hashed)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
			log.Error("Failed to update user", zap.Uint("user_id", user.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
	}

	prometheus.RecordUserOperation("update")
	return c.JSON(http.StatusOK, echo.Map{"message": "user updated successfully", "user": user})
}

// DeleteUser removes the account permanently.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.User{}, c.Param("id"))
	if result.Error != nil {
		log.Error("Failed to delete user", zap.String("id", c.Param("id")), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": result.Error.Error()})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	prometheus.RecordUserOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted successfully"})
}

// MoveAccount reparents a batch of users under a new superior account.
// Each user is validated against the circular-reference guard; failures
// are reported per user instead of aborting the batch.
func MoveAccount(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		IDs             []uint `json:"ids"`
		SuperiorAccount string `json:"superiorAccount"`
	}
	if err := c.Bind(&req); err != nil || len(req.IDs) == 0 || req.SuperiorAccount == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid input data"})
	}

	db := database.GetDB()
	dir := hierarchy.NewDirectory(db)

	updated := make([]uint, 0, len(req.IDs))
	notFound := make([]uint, 0)
	rejected := make([]uint, 0)

	defer prometheus.TrackDBOperation("update")(time.Now())
	for _, id := range req.IDs {
		var user model.User
		if err := db.First(&user, id).Error; err != nil {
			notFound = append(notFound, id)
			continue
		}

		if err := hierarchy.ValidateNoCircularReference(dir, req.SuperiorAccount, user.Email); err != nil {
			log.Warn("Move rejected",
				zap.Uint("user_id", id),
				zap.String("superior", req.SuperiorAccount),
				zap.Error(err))
			rejected = append(rejected, id)
			continue
		}

		if err := db.Model(&user).Update("superior_account", req.SuperiorAccount).Error; err != nil {
			log.Error("Failed to move account", zap.Uint("user_id", id), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
		}
		updated = append(updated, id)
	}

	prometheus.RecordUserOperation("move")
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "superior account updated successfully",
		"updated":  updated,
		"notFound": notFound,
		"rejected": rejected,
	})
}
