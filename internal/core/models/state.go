package models

// DesiredState is the declared broker topology. It is built once per run, by
// the loader or by the Add* helpers, and treated as read-only afterwards.
type DesiredState struct {
	VHosts      Declared[VirtualHost]
	Users       Declared[User]
	Permissions Declared[Permissions] // keyed user@vhost
	Exchanges   Declared[Exchange]    // keyed exchange@vhost
	Queues      Declared[Queue]       // keyed queue@vhost
	Bindings    Declared[[]Binding]   // keyed by owning exchange@vhost
}

// NewDesiredState returns an empty state.
func NewDesiredState() *DesiredState {
	return &DesiredState{}
}

func (s *DesiredState) AddVHost(name string, vh VirtualHost) *DesiredState {
	s.VHosts.Set(name, vh)
	return s
}

func (s *DesiredState) AddUser(name string, u User) *DesiredState {
	s.Users.Set(name, u)
	return s
}

func (s *DesiredState) AddPermissions(user, vhost string, p Permissions) *DesiredState {
	s.Permissions.Set(ResourceKey(user, vhost), p)
	return s
}

func (s *DesiredState) AddExchange(name, vhost string, e Exchange) *DesiredState {
	s.Exchanges.Set(ResourceKey(name, vhost), e)
	return s
}

func (s *DesiredState) AddQueue(name, vhost string, q Queue) *DesiredState {
	s.Queues.Set(ResourceKey(name, vhost), q)
	return s
}

// AddBinding appends b to the bindings owned by exchange@vhost.
func (s *DesiredState) AddBinding(exchange, vhost string, b Binding) *DesiredState {
	key := ResourceKey(exchange, vhost)
	existing, _ := s.Bindings.Get(key)
	s.Bindings.Set(key, append(existing, b))
	return s
}

// Size returns the total number of declared objects, counting each binding.
func (s *DesiredState) Size() int {
	n := s.VHosts.Len() + s.Users.Len() + s.Permissions.Len() + s.Exchanges.Len() + s.Queues.Len()
	s.Bindings.Each(func(_ string, bs []Binding) {
		n += len(bs)
	})
	return n
}
