package relayserver

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Frame Relay</title>
</head>
<body>
    <h1>Frame Relay</h1>
    <ul>
        <li><code>GET /jpg/{session}</code>: latest frame snapshot</li>
        <li><code>GET /mjpg/{session}</code>: live MJPEG stream</li>
        <li><code>/ws?session=...</code>: producer WebSocket ingestion</li>
        <li><code>GET /status?code=...</code>: session status (admin)</li>
        <li><code>GET /metrics</code>: Prometheus metrics</li>
    </ul>
</body>
</html>`
