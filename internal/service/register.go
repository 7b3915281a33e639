package service

import "github.com/personahub/chat-backend/internal/dispatch"

// Requests lists one value of every request type the backend serves.
func Requests() []dispatch.Request {
	return []dispatch.Request{
		RegisterAccount{}, Login{},
		CreateTicket{}, GetTicket{}, ListTicketHistory{}, ListMyTickets{}, ListTickets{},
		AssignTicket{}, EscalateTicket{}, CloseTicket{}, ReopenTicket{}, UpdateTicketStatus{},
		CreateReport{}, ResolveReport{}, ListReports{},
		CreatePersona{}, UpdatePersona{}, GetPersona{}, ListPublicPersonas{},
		SuspendPersona{}, ReinstatePersona{}, ArchivePersona{}, UploadPersonaImage{},
		StartChatSession{}, GetChatSession{},
		GetMyProfile{}, SuspendUser{}, UnsuspendUser{}, SetPassword{}, UnlinkGoogle{},
		RegisterDevice{}, UnregisterDevice{}, ListMyDevices{},
	}
}

// Register binds every handler and expects every request type, so a
// missing binding fails Build.
func Register(reg *dispatch.Registry, deps Dependencies) {
	NewAccountService(deps).register(reg)
	NewTicketService(deps).register(reg)
	NewReportService(deps).register(reg)
	NewPersonaService(deps).register(reg)
	NewChatService(deps).register(reg)
	NewUserService(deps).register(reg)
	NewDeviceService(deps).register(reg)
	reg.Expect(Requests()...)
}
