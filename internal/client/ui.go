package client

import (
	"fmt"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"

	"chatrelay/pkg/protocol"
)

// UI is the Fyne front end: online users and groups on the left, chat
// history and input on the right. Selecting a user targets private
// messages; selecting a group targets group messages. Sent messages are
// echoed locally because the relay never sends them back.
type UI struct {
	client *Client
	app    fyne.App
	window fyne.Window

	chatHistory binding.StringList
	userNames   binding.StringList
	groupLines  binding.StringList
	groupNames  []string // parallel to groupLines, selection lookup

	userList   *widget.List
	groupList  *widget.List
	input      *widget.Entry
	groupEntry *widget.Entry
	sendButton *widget.Button
	status     *widget.Label

	selectedUser  string
	selectedGroup string
}

// NewUI builds the window around an already-connected client core.
func NewUI(app fyne.App, c *Client) *UI {
	w := app.NewWindow(fmt.Sprintf("chatrelay: %s", c.Username()))
	ui := &UI{
		client:      c,
		app:         app,
		window:      w,
		chatHistory: binding.NewStringList(),
		userNames:   binding.NewStringList(),
		groupLines:  binding.NewStringList(),
	}
	ui.setupUI()
	return ui
}

func (ui *UI) setupUI() {
	chatList := widget.NewListWithData(
		ui.chatHistory,
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(i binding.DataItem, o fyne.CanvasObject) {
			o.(*widget.Label).Bind(i.(binding.String))
		},
	)

	ui.userList = widget.NewListWithData(
		ui.userNames,
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(i binding.DataItem, o fyne.CanvasObject) {
			o.(*widget.Label).Bind(i.(binding.String))
		},
	)
	ui.userList.OnSelected = func(id widget.ListItemID) {
		name, err := ui.userNames.GetValue(id)
		if err != nil {
			return
		}
		ui.selectedUser = name
		ui.selectedGroup = ""
		ui.groupList.UnselectAll()
		ui.status.SetText(fmt.Sprintf("To: %s (private)", name))
	}

	ui.groupList = widget.NewListWithData(
		ui.groupLines,
		func() fyne.CanvasObject { return widget.NewLabel("template") },
		func(i binding.DataItem, o fyne.CanvasObject) {
			o.(*widget.Label).Bind(i.(binding.String))
		},
	)
	ui.groupList.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(ui.groupNames) {
			return
		}
		ui.selectedGroup = ui.groupNames[id]
		ui.selectedUser = ""
		ui.userList.UnselectAll()
		ui.status.SetText(fmt.Sprintf("To: %s (group)", ui.selectedGroup))
	}

	ui.groupEntry = widget.NewEntry()
	ui.groupEntry.SetPlaceHolder("group name")
	createButton := widget.NewButton("Create", func() {
		if name := ui.groupEntry.Text; name != "" {
			ui.client.CreateGroup(name)
			ui.groupEntry.SetText("")
		}
	})
	joinButton := widget.NewButton("Join", func() {
		if name := ui.groupEntry.Text; name != "" {
			ui.client.JoinGroup(name)
			ui.groupEntry.SetText("")
		}
	})

	ui.input = widget.NewEntry()
	ui.input.SetPlaceHolder("Enter message...")
	ui.input.OnSubmitted = func(string) { ui.sendMessage() }
	ui.sendButton = widget.NewButton("Send", ui.sendMessage)

	ui.status = widget.NewLabel("Select a user or group to chat with")

	groupControls := container.NewBorder(nil, nil, nil, container.NewHBox(createButton, joinButton), ui.groupEntry)
	sidebar := container.NewVSplit(
		container.NewBorder(widget.NewLabel("Online users"), nil, nil, nil, ui.userList),
		container.NewBorder(widget.NewLabel("Groups"), groupControls, nil, nil, ui.groupList),
	)

	bottomBar := container.NewBorder(nil, nil, nil, ui.sendButton, ui.input)
	chatPane := container.NewBorder(ui.status, bottomBar, nil, nil, chatList)

	split := container.NewHSplit(sidebar, chatPane)
	split.SetOffset(0.3)

	ui.window.SetContent(split)
	ui.window.Resize(fyne.NewSize(800, 500))
	ui.window.SetOnClosed(func() {
		ui.client.Close()
	})
}

func (ui *UI) sendMessage() {
	text := ui.input.Text
	if text == "" {
		return
	}

	switch {
	case ui.selectedUser != "":
		ui.client.SendPrivate(ui.selectedUser, text)
		ui.chatHistory.Append(fmt.Sprintf("[you → %s] %s", ui.selectedUser, text))
	case ui.selectedGroup != "":
		ui.client.SendGroupMessage(ui.selectedGroup, text)
		ui.chatHistory.Append(fmt.Sprintf("[%s] %s: %s", ui.selectedGroup, ui.client.Username(), text))
	default:
		ui.status.SetText("Select a user or group first")
		return
	}
	ui.input.SetText("")
}

// Run starts the frame consumer and shows the window; it blocks until the
// window closes.
func (ui *UI) Run() {
	go func() {
		for msg := range ui.client.Incoming() {
			ui.handleIncoming(msg)
		}
		// Connection gone: widget state must change on the GUI thread.
		fyne.Do(func() {
			ui.input.Disable()
			ui.sendButton.Disable()
		})
		ui.chatHistory.Append("--- disconnected from server ---")
	}()

	ui.window.ShowAndRun()
}

// handleIncoming maps one server frame onto the UI. Bindings are safe to
// update from this goroutine.
func (ui *UI) handleIncoming(msg protocol.Message) {
	switch msg.Command {
	case protocol.UpdateUserList:
		users, err := msg.Users()
		if err != nil {
			return
		}
		_ = ui.userNames.Set(users)

	case protocol.UpdateGroupList:
		groups, err := msg.Groups()
		if err != nil {
			return
		}
		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)
		lines := make([]string, len(names))
		for i, name := range names {
			lines[i] = fmt.Sprintf("%s (%d)", name, len(groups[name]))
		}
		// groupNames is also read by the selection callback, so the swap
		// has to happen on the GUI thread.
		fyne.Do(func() {
			ui.groupNames = names
			_ = ui.groupLines.Set(lines)
		})

	case protocol.RecvPrivate:
		p, err := msg.AsPrivateRecv()
		if err != nil {
			return
		}
		ui.chatHistory.Append(fmt.Sprintf("[%s → you] %s", p.Sender, p.Message))

	case protocol.RecvGroup:
		p, err := msg.AsGroupRecv()
		if err != nil {
			return
		}
		ui.chatHistory.Append(fmt.Sprintf("[%s] %s: %s", p.Group, p.Sender, p.Message))

	case protocol.Error:
		text, err := msg.Text()
		if err != nil {
			return
		}
		ui.chatHistory.Append(fmt.Sprintf("--- server error: %s ---", text))
	}
}
