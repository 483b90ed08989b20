package mgmtapi

import (
	"net/url"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/ottermq/otterconf/internal/core/models"
)

func param(c *fiber.Ctx, name string) string {
	value := c.Params(name)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

func currentUser(c *fiber.Ctx) string {
	user, _ := c.Locals("username").(string)
	return user
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error:  "Object Not Found",
		Reason: "Not Found",
	})
}

func notAuthorised(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error:  "not_authorised",
		Reason: "Access refused.",
	})
}

func badRequest(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error:  "bad_request",
		Reason: reason,
	})
}

// created answers 201 for a new object and 204 when it already existed.
func created(c *fiber.Ctx, existed bool) error {
	if existed {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) getOverview(c *fiber.Ctx) error {
	if s.isDown() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "service_unavailable",
		})
	}
	return c.Status(fiber.StatusOK).JSON(models.OverviewDTO{
		ManagementVersion: "3.13.0",
		ProductName:       "RabbitMQ",
		ProductVersion:    "3.13.0",
		ClusterName:       "rabbit@fake",
	})
}

func (s *Server) listVHosts(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	user := currentUser(c)
	vhosts := make([]models.VHostDTO, 0, len(st.vhosts))
	for name, dto := range st.vhosts {
		if st.isAdmin(user) || st.canAccess(user, name) {
			vhosts = append(vhosts, dto)
		}
	}
	sort.Slice(vhosts, func(i, j int) bool { return vhosts[i].Name < vhosts[j].Name })
	return c.Status(fiber.StatusOK).JSON(vhosts)
}

func (s *Server) putVHost(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isAdmin(currentUser(c)) {
		return notAuthorised(c)
	}
	var req models.CreateVHostRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
	}
	name := param(c, "vhost")
	_, existed := st.vhosts[name]
	st.vhosts[name] = models.VHostDTO{Name: name, Tracing: req.Tracing}
	return created(c, existed)
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isAdmin(currentUser(c)) {
		return notAuthorised(c)
	}
	users := make([]models.UserDTO, 0, len(st.users))
	for name, rec := range st.users {
		users = append(users, models.UserDTO{
			Name:         name,
			PasswordHash: "hashed:" + name,
			Tags:         append(models.UserTags{}, rec.tags...),
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return c.Status(fiber.StatusOK).JSON(users)
}

func (s *Server) putUser(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isAdmin(currentUser(c)) {
		return notAuthorised(c)
	}
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Password == "" {
		return badRequest(c, "password or password_hash must be set")
	}
	name := param(c, "user")
	_, existed := st.users[name]
	st.users[name] = userRecord{password: req.Password, tags: req.TagList()}
	return created(c, existed)
}

func (s *Server) listPermissions(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isAdmin(currentUser(c)) {
		return notAuthorised(c)
	}
	perms := make([]models.PermissionDTO, 0, len(st.perms))
	for _, dto := range st.perms {
		perms = append(perms, dto)
	}
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].VHost != perms[j].VHost {
			return perms[i].VHost < perms[j].VHost
		}
		return perms[i].User < perms[j].User
	})
	return c.Status(fiber.StatusOK).JSON(perms)
}

func (s *Server) putPermissions(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.isAdmin(currentUser(c)) {
		return notAuthorised(c)
	}
	vhost, user := param(c, "vhost"), param(c, "user")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if _, ok := st.users[user]; !ok {
		return badRequest(c, "no_such_user")
	}
	var req models.SetPermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	key := objectKey{vhost, user}
	_, existed := st.perms[key]
	st.perms[key] = models.PermissionDTO{
		User: user, VHost: vhost, Configure: req.Configure, Write: req.Write, Read: req.Read,
	}
	return created(c, existed)
}

func (s *Server) getExchange(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost, name := param(c, "vhost"), param(c, "name")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canAccess(currentUser(c), vhost) {
		return notAuthorised(c)
	}
	dto, ok := st.exchanges[objectKey{vhost, name}]
	if !ok {
		return notFound(c)
	}
	return c.Status(fiber.StatusOK).JSON(dto)
}

func (s *Server) putExchange(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost, name := param(c, "vhost"), param(c, "name")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canConfigure(currentUser(c), vhost, name) {
		return notAuthorised(c)
	}
	var req models.CreateExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.ExchangeType == "" {
		return badRequest(c, "exchange type must be set")
	}
	dto := models.ExchangeDTO{
		VHost:      vhost,
		Name:       name,
		Type:       req.ExchangeType,
		Durable:    req.Durable,
		AutoDelete: req.AutoDelete,
		Internal:   req.Internal,
		Arguments:  req.Arguments,
	}
	key := objectKey{vhost, name}
	if existing, ok := st.exchanges[key]; ok {
		if !existing.ToModel().Equal(dto.ToModel()) {
			return badRequest(c, "inequivalent arg for exchange '"+name+"'")
		}
		return created(c, true)
	}
	st.exchanges[key] = dto
	return created(c, false)
}

func (s *Server) getQueue(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost, name := param(c, "vhost"), param(c, "name")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canAccess(currentUser(c), vhost) {
		return notAuthorised(c)
	}
	dto, ok := st.queues[objectKey{vhost, name}]
	if !ok {
		return notFound(c)
	}
	return c.Status(fiber.StatusOK).JSON(dto)
}

func (s *Server) putQueue(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost, name := param(c, "vhost"), param(c, "name")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canConfigure(currentUser(c), vhost, name) {
		return notAuthorised(c)
	}
	var req models.CreateQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	dto := models.QueueDTO{
		VHost:      vhost,
		Name:       name,
		Durable:    req.Durable,
		AutoDelete: req.AutoDelete,
		Arguments:  req.Arguments,
		State:      "running",
	}
	key := objectKey{vhost, name}
	if existing, ok := st.queues[key]; ok {
		if !existing.ToModel().Equal(dto.ToModel()) {
			return badRequest(c, "inequivalent arg for queue '"+name+"'")
		}
		return created(c, true)
	}
	st.queues[key] = dto
	return created(c, false)
}

func (s *Server) listBindings(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost := param(c, "vhost")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canAccess(currentUser(c), vhost) {
		return notAuthorised(c)
	}
	bindings := make([]models.BindingDTO, 0)
	for _, b := range st.bindings {
		if b.VHost == vhost {
			bindings = append(bindings, b)
		}
	}
	return c.Status(fiber.StatusOK).JSON(bindings)
}

func (s *Server) postBinding(c *fiber.Ctx) error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	vhost, source, dest := param(c, "vhost"), param(c, "source"), param(c, "dest")
	if _, ok := st.vhosts[vhost]; !ok {
		return notFound(c)
	}
	if !st.canAccess(currentUser(c), vhost) {
		return notAuthorised(c)
	}
	if _, ok := st.exchanges[objectKey{vhost, source}]; !ok {
		return notFound(c)
	}

	var destType models.DestinationType
	switch c.Params("dtype") {
	case "q":
		destType = models.DestinationQueue
		if _, ok := st.queues[objectKey{vhost, dest}]; !ok {
			return notFound(c)
		}
	case "e":
		destType = models.DestinationExchange
		if _, ok := st.exchanges[objectKey{vhost, dest}]; !ok {
			return notFound(c)
		}
	default:
		return notFound(c)
	}

	var req models.CreateBindingRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
	}
	dto := models.BindingDTO{
		VHost:           vhost,
		Source:          source,
		Destination:     dest,
		DestinationType: string(destType),
		RoutingKey:      req.RoutingKey,
		Arguments:       req.Arguments,
		PropertiesKey:   req.RoutingKey,
	}
	if !st.hasBinding(dto) {
		st.bindings = append(st.bindings, dto)
	}
	c.Set(fiber.HeaderLocation, "./"+url.PathEscape(dto.PropertiesKey))
	return c.SendStatus(fiber.StatusCreated)
}
