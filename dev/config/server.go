package config

const SERVER_YML = `
enablex:
  cron:
    timeZone: "America/Toronto"
  listener:
    port: 3000
  alerting:
    countdownSeconds: 10
    sosCooldown: 3s
    locationTimeout: 5s
  location:
    # Set both for a device that doesn't move e.g. a bedside tablet
    fixedLatitude:
    fixedLongitude:
  speech:
    espeakBinary: espeak
  reader:
    # Still frame the camera app writes, used by "read aloud"
    framePath:
    language: eng
  intent:
    # "exec" opens sms:, tel:, mailto: & map links with the OS opener,
    # "log" only logs them
    launcher: log
    opener:
    supportEmails:
      - support@enablex.app

# Leave empty in dev mode to keep data in memory
sqlite:
  passPhrase: passphrase
`
