package gmail

// Service groups the Gmail resources that share one Client.
type Service struct {
	Client   *Client
	Messages *MessagesService
	Threads  *ThreadsService
	Drafts   *DraftsService
	Labels   *LabelsService
	Users    *UsersService
}

// NewService wires every resource to c.
func NewService(c *Client) *Service {
	return &Service{
		Client:   c,
		Messages: &MessagesService{c: c},
		Threads:  &ThreadsService{c: c},
		Drafts:   &DraftsService{c: c},
		Labels:   &LabelsService{c: c},
		Users:    &UsersService{c: c},
	}
}
